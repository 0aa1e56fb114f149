package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/dmitrijs2005/migrainelog/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	apiKey      string
	projectID   string

	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

func (s *GRPCClient) withCallMetadata(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	if s.apiKey != "" {
		md.Set(common.APIKeyHeaderName, s.apiKey)
	}
	if s.projectID != "" {
		md.Set(common.ProjectHeaderName, s.projectID)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches credentials to every call and, when the
// server reports an expired access token, refreshes the token pair once and
// retries.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.tokens()

	err := invoker(s.withCallMetadata(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" || method == rpc.FullMethod(rpc.MethodRefreshToken) {
		return err
	}

	var resp rpc.TokenResponse
	if rerr := rpc.Invoke(ctx, s.cc, rpc.MethodRefreshToken, rpc.RefreshTokenRequest{RefreshToken: refresh}, &resp); rerr != nil {
		return rerr
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)

	return invoker(s.withCallMetadata(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

// Options carries the connection parameters of NewGRPCClient.
type Options struct {
	EndpointURL string
	APIKey      string
	ProjectID   string
}

func NewGRPCClient(opts Options) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: opts.EndpointURL, apiKey: opts.APIKey, projectID: opts.ProjectID}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.cc = conn
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) call(ctx context.Context, method string, req, resp any) error {
	if err := rpc.Invoke(ctx, s.cc, method, req, resp); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, userName string, salt []byte, verifier []byte) error {
	return s.call(ctx, rpc.MethodRegister, rpc.RegisterRequest{Username: userName, Salt: salt, Verifier: verifier}, nil)
}

func (s *GRPCClient) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	var resp rpc.GetSaltResponse
	if err := s.call(ctx, rpc.MethodGetSalt, rpc.GetSaltRequest{Username: userName}, &resp); err != nil {
		return nil, err
	}
	return resp.Salt, nil
}

// Login exchanges the verifier for a token pair and returns the user id.
func (s *GRPCClient) Login(ctx context.Context, userName string, verifier []byte) (string, error) {
	var resp rpc.TokenResponse
	if err := s.call(ctx, rpc.MethodLogin, rpc.LoginRequest{Username: userName, Verifier: verifier}, &resp); err != nil {
		return "", err
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return resp.UserID, nil
}

// Logout forgets the token pair.
func (s *GRPCClient) Logout() {
	s.setTokens("", "")
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var resp rpc.PingResponse
	if err := s.call(ctx, rpc.MethodPing, nil, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) InitUser(ctx context.Context, req rpc.InitUserRequest) (bool, error) {
	var resp rpc.InitUserResponse
	if err := s.call(ctx, rpc.MethodInitUser, req, &resp); err != nil {
		return false, err
	}
	return resp.Created, nil
}

func (s *GRPCClient) AddEntry(ctx context.Context, userID string, in models.EntryInput) (models.ID, error) {
	var resp rpc.AddEntryResponse
	if err := s.call(ctx, rpc.MethodAddEntry, rpc.AddEntryRequest{UserID: userID, Entry: in}, &resp); err != nil {
		return "", err
	}
	return models.ID(resp.ID).Canonical(), nil
}

func (s *GRPCClient) UpdateEntry(ctx context.Context, id models.ID, patch models.EntryPatch) error {
	return s.call(ctx, rpc.MethodUpdateEntry, rpc.UpdateEntryRequest{ID: id.String(), Patch: patch}, nil)
}

func (s *GRPCClient) DeleteEntry(ctx context.Context, id models.ID) error {
	return s.call(ctx, rpc.MethodDeleteEntry, rpc.EntryIDRequest{ID: id.String()}, nil)
}

func (s *GRPCClient) GetEntry(ctx context.Context, id models.ID) (rpc.Entry, error) {
	var resp rpc.EntryResponse
	if err := s.call(ctx, rpc.MethodGetEntry, rpc.EntryIDRequest{ID: id.String()}, &resp); err != nil {
		return rpc.Entry{}, err
	}
	return resp.Entry, nil
}

func (s *GRPCClient) ListEntries(ctx context.Context, req rpc.ListEntriesRequest) ([]rpc.Entry, error) {
	var resp rpc.ListEntriesResponse
	if err := s.call(ctx, rpc.MethodListEntries, req, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (s *GRPCClient) ListEntriesInRange(ctx context.Context, userID string, from, to time.Time) ([]rpc.Entry, error) {
	req := rpc.ListEntriesInRangeRequest{UserID: userID, From: rpc.NewTimestamp(from), To: rpc.NewTimestamp(to)}
	var resp rpc.ListEntriesResponse
	if err := s.call(ctx, rpc.MethodListEntriesInRange, req, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (s *GRPCClient) GetPreferences(ctx context.Context, userID string) (map[string]any, error) {
	var resp rpc.PreferencesResponse
	if err := s.call(ctx, rpc.MethodGetPreferences, rpc.PreferencesRequest{UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return resp.Preferences, nil
}

func (s *GRPCClient) SetPreferences(ctx context.Context, userID string, prefs map[string]any) error {
	return s.call(ctx, rpc.MethodSetPreferences, rpc.SetPreferencesRequest{UserID: userID, Preferences: prefs}, nil)
}

// PresignBackup asks the server for a URL to upload (or download) the named
// backup object.
func (s *GRPCClient) PresignBackup(ctx context.Context, userID, name string, upload bool) (string, error) {
	var resp rpc.PresignBackupResponse
	if err := s.call(ctx, rpc.MethodPresignBackup, rpc.PresignBackupRequest{UserID: userID, Name: name, Upload: upload}, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrorPermissionDenied, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorValidation, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", common.ErrIndexMissing, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
