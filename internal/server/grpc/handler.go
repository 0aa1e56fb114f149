package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/dmitrijs2005/migrainelog/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type methodFunc func(s *GRPCServer, ctx context.Context, in *structpb.Struct) (any, error)

var methods = map[string]methodFunc{
	rpc.MethodPing:               (*GRPCServer).ping,
	rpc.MethodRegister:           (*GRPCServer).register,
	rpc.MethodGetSalt:            (*GRPCServer).getSalt,
	rpc.MethodLogin:              (*GRPCServer).login,
	rpc.MethodRefreshToken:       (*GRPCServer).refreshToken,
	rpc.MethodInitUser:           (*GRPCServer).initUser,
	rpc.MethodAddEntry:           (*GRPCServer).addEntry,
	rpc.MethodUpdateEntry:        (*GRPCServer).updateEntry,
	rpc.MethodDeleteEntry:        (*GRPCServer).deleteEntry,
	rpc.MethodGetEntry:           (*GRPCServer).getEntry,
	rpc.MethodListEntries:        (*GRPCServer).listEntries,
	rpc.MethodListEntriesInRange: (*GRPCServer).listEntriesInRange,
	rpc.MethodGetPreferences:     (*GRPCServer).getPreferences,
	rpc.MethodSetPreferences:     (*GRPCServer).setPreferences,
	rpc.MethodPresignBackup:      (*GRPCServer).presignBackup,
}

// Handle implements rpc.Handler.
func (s *GRPCServer) Handle(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	fn, ok := methods[method]
	if !ok {
		return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}

	if !rpc.PublicMethods[method] {
		authed, ok := UserIDFromContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}
		if uid := rpc.StringField(in, "userId"); uid != "" && uid != authed {
			s.logger.Warn(ctx, "userId does not match token", "method", method, "user_id", authed)
			return nil, status.Error(codes.PermissionDenied, "permission denied")
		}
	}

	out, err := fn(s, ctx, in)
	if err != nil {
		return nil, s.toStatus(ctx, method, err)
	}
	res, err := rpc.Encode(out)
	if err != nil {
		s.logger.Error(ctx, "encoding response failed", "method", method, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return res, nil
}

// errBadRequest marks requests that could not be decoded.
var errBadRequest = errors.New("malformed request")

func decode(in *structpb.Struct, v any) error {
	if err := rpc.Decode(in, v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorPermissionDenied):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrIndexMissing):
		return status.Error(codes.FailedPrecondition, common.ErrIndexMissing.Error())
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	}
	s.logger.Error(ctx, "request failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func caller(ctx context.Context) string {
	id, _ := UserIDFromContext(ctx)
	return id
}

func (s *GRPCServer) ping(ctx context.Context, in *structpb.Struct) (any, error) {
	return rpc.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) register(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.RegisterRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if _, err := s.svc.Users.Register(ctx, req.Username, req.Salt, req.Verifier); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Registered", "username", req.Username)
	return nil, nil
}

func (s *GRPCServer) getSalt(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.GetSaltRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	salt, err := s.svc.Users.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	return rpc.GetSaltResponse{Salt: salt}, nil
}

func (s *GRPCServer) login(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.LoginRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	pair, err := s.svc.Users.Login(ctx, req.Username, req.Verifier)
	if err != nil {
		return nil, err
	}
	return rpc.TokenResponse{UserID: pair.UserID, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) refreshToken(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.RefreshTokenRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	pair, err := s.svc.Users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	return rpc.TokenResponse{UserID: pair.UserID, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) initUser(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.InitUserRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	created, err := s.svc.Profiles.InitUser(ctx, caller(ctx), req.DisplayName, req.Email)
	if err != nil {
		return nil, err
	}
	return rpc.InitUserResponse{Created: created}, nil
}

func (s *GRPCServer) addEntry(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.AddEntryRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	e, err := s.svc.Entries.Add(ctx, caller(ctx), req.Entry)
	if err != nil {
		return nil, err
	}
	return rpc.AddEntryResponse{ID: e.ID.String()}, nil
}

func (s *GRPCServer) updateEntry(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.UpdateEntryRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	e, err := s.svc.Entries.Update(ctx, caller(ctx), req.ID, req.Patch)
	if err != nil {
		return nil, err
	}
	return rpc.EntryResponse{Entry: rpc.EntryFromModel(e)}, nil
}

func (s *GRPCServer) deleteEntry(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.EntryIDRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return nil, s.svc.Entries.Delete(ctx, caller(ctx), req.ID)
}

func (s *GRPCServer) getEntry(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.EntryIDRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	e, err := s.svc.Entries.Get(ctx, caller(ctx), req.ID)
	if err != nil {
		return nil, err
	}
	return rpc.EntryResponse{Entry: rpc.EntryFromModel(e)}, nil
}

func entriesResponse(list []models.Entry) rpc.ListEntriesResponse {
	out := rpc.ListEntriesResponse{Entries: make([]rpc.Entry, 0, len(list))}
	for _, e := range list {
		out.Entries = append(out.Entries, rpc.EntryFromModel(e))
	}
	return out
}

func (s *GRPCServer) listEntries(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.ListEntriesRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	list, err := s.svc.Entries.List(ctx, caller(ctx), req.Ordered, req.Limit)
	if err != nil {
		return nil, err
	}
	return entriesResponse(list), nil
}

func (s *GRPCServer) listEntriesInRange(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.ListEntriesInRangeRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	list, err := s.svc.Entries.ListInRange(ctx, caller(ctx), req.From.Time, req.To.Time)
	if err != nil {
		return nil, err
	}
	return entriesResponse(list), nil
}

func (s *GRPCServer) getPreferences(ctx context.Context, in *structpb.Struct) (any, error) {
	prefs, err := s.svc.Profiles.GetPreferences(ctx, caller(ctx))
	if err != nil {
		return nil, err
	}
	return rpc.PreferencesResponse{Preferences: prefs}, nil
}

func (s *GRPCServer) setPreferences(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.SetPreferencesRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return nil, s.svc.Profiles.SetPreferences(ctx, caller(ctx), req.Preferences)
}

func (s *GRPCServer) presignBackup(ctx context.Context, in *structpb.Struct) (any, error) {
	var req rpc.PresignBackupRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	key, url, err := s.svc.Backups.Presign(ctx, caller(ctx), req.Name, req.Upload)
	if err != nil {
		return nil, err
	}
	return rpc.PresignBackupResponse{Key: key, URL: url}, nil
}
