package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/dmitrijs2005/migrainelog/internal/rpc"
	"github.com/dmitrijs2005/migrainelog/internal/server/auth"
	"github.com/dmitrijs2005/migrainelog/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestPing_IsPublic(t *testing.T) {
	h := newHarness(t, testAPIKey)

	var resp rpc.PingResponse
	require.NoError(t, rpc.Invoke(as(t, ""), h.conn, rpc.MethodPing, nil, &resp))
	assert.Equal(t, "OK", resp.Status)
}

func TestAPIKey(t *testing.T) {
	h := newHarness(t, testAPIKey)

	err := rpc.Invoke(context.Background(), h.conn, rpc.MethodPing, nil, nil)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), common.APIKeyHeaderName, "wrong")
	err = rpc.Invoke(ctx, h.conn, rpc.MethodPing, nil, nil)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestAPIKey_DisabledWhenEmpty(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, rpc.Invoke(context.Background(), h.conn, rpc.MethodPing, nil, nil))
}

func TestAccessToken(t *testing.T) {
	h := newHarness(t, testAPIKey)

	t.Run("missing", func(t *testing.T) {
		err := rpc.Invoke(as(t, ""), h.conn, rpc.MethodGetPreferences, rpc.PreferencesRequest{}, nil)
		st, _ := status.FromError(err)
		assert.Equal(t, codes.Unauthenticated, st.Code())
		assert.Equal(t, "missing token", st.Message())
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := auth.GenerateToken("u1", []byte(testSecret), -time.Minute)
		require.NoError(t, err)
		ctx := metadata.AppendToOutgoingContext(as(t, ""), common.AccessTokenHeaderName, tok)

		err = rpc.Invoke(ctx, h.conn, rpc.MethodGetPreferences, rpc.PreferencesRequest{}, nil)
		st, _ := status.FromError(err)
		assert.Equal(t, codes.Unauthenticated, st.Code())
		assert.Equal(t, common.ErrTokenExpired.Error(), st.Message())
	})

	t.Run("foreign signature", func(t *testing.T) {
		tok, err := auth.GenerateToken("u1", []byte("other"), time.Hour)
		require.NoError(t, err)
		ctx := metadata.AppendToOutgoingContext(as(t, ""), common.AccessTokenHeaderName, tok)

		err = rpc.Invoke(ctx, h.conn, rpc.MethodGetPreferences, rpc.PreferencesRequest{}, nil)
		st, _ := status.FromError(err)
		assert.Equal(t, codes.Unauthenticated, st.Code())
		assert.Equal(t, common.ErrInvalidToken.Error(), st.Message())
	})
}

func TestAccountMethods(t *testing.T) {
	h := newHarness(t, testAPIKey)
	h.users.salt = []byte("salt")
	h.users.pair = &services.TokenPair{UserID: "u1", AccessToken: "a", RefreshToken: "r"}
	ctx := as(t, "")

	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodRegister,
		rpc.RegisterRequest{Username: "ann", Salt: []byte("s"), Verifier: []byte("v")}, nil))
	assert.Equal(t, []string{"ann"}, h.users.registered)

	var salt rpc.GetSaltResponse
	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodGetSalt, rpc.GetSaltRequest{Username: "ann"}, &salt))
	assert.Equal(t, []byte("salt"), salt.Salt)

	var tokens rpc.TokenResponse
	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodLogin, rpc.LoginRequest{Username: "ann", Verifier: []byte("v")}, &tokens))
	assert.Equal(t, rpc.TokenResponse{UserID: "u1", AccessToken: "a", RefreshToken: "r"}, tokens)

	tokens = rpc.TokenResponse{}
	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodRefreshToken, rpc.RefreshTokenRequest{RefreshToken: "r"}, &tokens))
	assert.Equal(t, "u1", tokens.UserID)
}

func TestAccountMethods_Errors(t *testing.T) {
	h := newHarness(t, testAPIKey)
	ctx := as(t, "")

	h.users.regErr = fmt.Errorf("create: %w", common.ErrorAlreadyExists)
	err := rpc.Invoke(ctx, h.conn, rpc.MethodRegister, rpc.RegisterRequest{Username: "ann"}, nil)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	h.users.loginErr = common.ErrorUnauthorized
	err = rpc.Invoke(ctx, h.conn, rpc.MethodLogin, rpc.LoginRequest{Username: "ann"}, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	h.users.refreshErr = common.ErrRefreshTokenExpired
	err = rpc.Invoke(ctx, h.conn, rpc.MethodRefreshToken, rpc.RefreshTokenRequest{RefreshToken: "r"}, nil)
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, common.ErrRefreshTokenExpired.Error(), st.Message())
}

func TestEntryLifecycle(t *testing.T) {
	h := newHarness(t, testAPIKey)
	ctx := as(t, "u1")

	start := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)
	var added rpc.AddEntryResponse
	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodAddEntry, rpc.AddEntryRequest{
		UserID: "u1",
		Entry:  models.EntryInput{StartDateTime: start, Intensity: 6, Triggers: []string{"Stress"}},
	}, &added))
	require.NotEmpty(t, added.ID)
	assert.Equal(t, "u1", h.entries.lastOwner)

	var got rpc.EntryResponse
	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodGetEntry, rpc.EntryIDRequest{ID: added.ID}, &got))
	assert.Equal(t, 6, got.Entry.Intensity)
	assert.True(t, got.Entry.StartDateTime.Equal(start))

	notes := "after lunch"
	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodUpdateEntry,
		rpc.UpdateEntryRequest{ID: added.ID, Patch: models.EntryPatch{Notes: &notes}}, nil))

	var list rpc.ListEntriesResponse
	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodListEntries, rpc.ListEntriesRequest{UserID: "u1"}, &list))
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "after lunch", list.Entries[0].Notes)

	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodDeleteEntry, rpc.EntryIDRequest{ID: added.ID}, nil))
	err := rpc.Invoke(ctx, h.conn, rpc.MethodGetEntry, rpc.EntryIDRequest{ID: added.ID}, nil)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestForeignAccess(t *testing.T) {
	h := newHarness(t, testAPIKey)

	var added rpc.AddEntryResponse
	require.NoError(t, rpc.Invoke(as(t, "u1"), h.conn, rpc.MethodAddEntry, rpc.AddEntryRequest{
		UserID: "u1",
		Entry:  models.EntryInput{StartDateTime: time.Now(), Intensity: 3},
	}, &added))

	other := as(t, "u2")

	err := rpc.Invoke(other, h.conn, rpc.MethodGetEntry, rpc.EntryIDRequest{ID: added.ID}, nil)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	err = rpc.Invoke(other, h.conn, rpc.MethodListEntries, rpc.ListEntriesRequest{UserID: "u1"}, nil)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	err = rpc.Invoke(other, h.conn, rpc.MethodSetPreferences, rpc.SetPreferencesRequest{UserID: "u1"}, nil)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestAddEntry_Validation(t *testing.T) {
	h := newHarness(t, testAPIKey)
	ctx := as(t, "u1")

	err := rpc.Invoke(ctx, h.conn, rpc.MethodAddEntry, rpc.AddEntryRequest{
		UserID: "u1",
		Entry:  models.EntryInput{StartDateTime: time.Now(), Intensity: 0},
	}, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	bad, err := structpb.NewStruct(map[string]any{
		"userId": "u1",
		"entry":  map[string]any{"startDateTime": "yesterday", "intensity": 4},
	})
	require.NoError(t, err)
	err = h.conn.Invoke(ctx, rpc.FullMethod(rpc.MethodAddEntry), bad, new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestListEntries_IndexMissing(t *testing.T) {
	h := newHarness(t, testAPIKey)
	h.entries.listErr = fmt.Errorf("ordered listing: %w", common.ErrIndexMissing)

	err := rpc.Invoke(as(t, "u1"), h.conn, rpc.MethodListEntries, rpc.ListEntriesRequest{UserID: "u1", Ordered: true}, nil)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestListEntriesInRange_DecodesBounds(t *testing.T) {
	h := newHarness(t, testAPIKey)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)
	req := rpc.ListEntriesInRangeRequest{UserID: "u1", From: rpc.NewTimestamp(from), To: rpc.NewTimestamp(to)}

	var resp rpc.ListEntriesResponse
	require.NoError(t, rpc.Invoke(as(t, "u1"), h.conn, rpc.MethodListEntriesInRange, req, &resp))
	assert.NotNil(t, resp.Entries)
	assert.True(t, h.entries.lastFrom.Equal(from))
	assert.True(t, h.entries.lastTo.Equal(to))
}

func TestProfileMethods(t *testing.T) {
	h := newHarness(t, testAPIKey)
	ctx := as(t, "u1")

	var init rpc.InitUserResponse
	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodInitUser, rpc.InitUserRequest{UserID: "u1"}, &init))
	assert.True(t, init.Created)
	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodInitUser, rpc.InitUserRequest{UserID: "u1"}, &init))
	assert.False(t, init.Created)

	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodSetPreferences,
		rpc.SetPreferencesRequest{UserID: "u1", Preferences: map[string]any{"darkMode": true}}, nil))

	var prefs rpc.PreferencesResponse
	require.NoError(t, rpc.Invoke(ctx, h.conn, rpc.MethodGetPreferences, rpc.PreferencesRequest{UserID: "u1"}, &prefs))
	assert.Equal(t, map[string]any{"darkMode": true}, prefs.Preferences)
}

func TestPresignBackup_UsesCaller(t *testing.T) {
	h := newHarness(t, testAPIKey)

	var resp rpc.PresignBackupResponse
	require.NoError(t, rpc.Invoke(as(t, "u1"), h.conn, rpc.MethodPresignBackup,
		rpc.PresignBackupRequest{Name: "weekly", Upload: true}, &resp))
	assert.Equal(t, "users/u1/backups/weekly.json", resp.Key)
	assert.Equal(t, "https://s3.local/users/u1/backups/weekly.json", resp.URL)
}

func TestHandle_Direct(t *testing.T) {
	s := NewGRPCServer("", logging.NewNopLogger(), Services{}, testSecret, "")

	_, err := s.Handle(context.Background(), "Nope", nil)
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	_, err = s.Handle(context.Background(), rpc.MethodGetPreferences, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestToStatus(t *testing.T) {
	s := NewGRPCServer("", logging.NewNopLogger(), Services{}, testSecret, "")

	cases := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("x: %w", common.ErrorNotFound), codes.NotFound},
		{fmt.Errorf("x: %w", common.ErrorPermissionDenied), codes.PermissionDenied},
		{fmt.Errorf("%w: bad", common.ErrorValidation), codes.InvalidArgument},
		{errors.Join(errBadRequest, errors.New("json")), codes.InvalidArgument},
		{common.ErrorAlreadyExists, codes.AlreadyExists},
		{fmt.Errorf("x: %w", common.ErrIndexMissing), codes.FailedPrecondition},
		{common.ErrorUnauthorized, codes.Unauthenticated},
		{common.ErrRefreshTokenExpired, codes.Unauthenticated},
		{errors.New("db down"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.code, status.Code(s.toStatus(context.Background(), "m", tc.err)))
		})
	}
}

func TestToStatus_HidesInternalDetails(t *testing.T) {
	s := NewGRPCServer("", logging.NewNopLogger(), Services{}, testSecret, "")

	st, _ := status.FromError(s.toStatus(context.Background(), "m", errors.New("password=hunter2")))
	assert.Equal(t, "internal error", st.Message())
}
