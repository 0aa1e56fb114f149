// Package grpc serves the journal API. GRPCServer implements rpc.Handler and
// dispatches each method to the services.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/dmitrijs2005/migrainelog/internal/rpc"
	srvmodels "github.com/dmitrijs2005/migrainelog/internal/server/models"
	"github.com/dmitrijs2005/migrainelog/internal/server/services"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, username string, salt, verifier []byte) (*srvmodels.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifierCandidate []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type EntryService interface {
	Add(ctx context.Context, userID string, in models.EntryInput) (models.Entry, error)
	Get(ctx context.Context, userID, id string) (models.Entry, error)
	Update(ctx context.Context, userID, id string, patch models.EntryPatch) (models.Entry, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string, ordered bool, limit int) ([]models.Entry, error)
	ListInRange(ctx context.Context, userID string, from, to time.Time) ([]models.Entry, error)
}

type ProfileService interface {
	InitUser(ctx context.Context, userID, displayName, email string) (bool, error)
	GetPreferences(ctx context.Context, userID string) (map[string]any, error)
	SetPreferences(ctx context.Context, userID string, prefs map[string]any) error
}

type BackupService interface {
	Presign(ctx context.Context, userID, name string, upload bool) (string, string, error)
}

// Services groups the dependencies of GRPCServer.
type Services struct {
	Users    UserService
	Entries  EntryService
	Profiles ProfileService
	Backups  BackupService
}

type GRPCServer struct {
	address   string
	svc       Services
	logger    logging.Logger
	jwtSecret []byte
	apiKey    string
}

// NewGRPCServer builds a server listening on address. An empty apiKey turns
// the project key check off.
func NewGRPCServer(address string, l logging.Logger, svc Services, secretKey, apiKey string) *GRPCServer {
	return &GRPCServer{
		address:   address,
		svc:       svc,
		logger:    l.With("module", "grpc_server"),
		jwtSecret: []byte(secretKey),
		apiKey:    apiKey,
	}
}

// NewServer returns a grpc.Server with the journal service and its
// interceptors registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.apiKeyInterceptor, s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	rpc.RegisterHandler(srv, s)
	return srv
}

// Run serves on the configured address until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
