// Package grpc exposes the ledger services over gRPC using the JSON codec
// and service descriptor from internal/rpc.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/pocketledger/internal/logging"
	"github.com/dmitrijs2005/pocketledger/internal/rpc"
	"github.com/dmitrijs2005/pocketledger/internal/server/services"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address  string
	auth     *services.AuthService
	ledger   *services.LedgerService
	accounts *services.AccountService
	logger   logging.Logger
}

var _ rpc.LedgerServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, as *services.AuthService, ls *services.LedgerService, acc *services.AccountService) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		auth:     as,
		ledger:   ls,
		accounts: acc,
	}
}

// newServer builds a grpc.Server with the interceptor chain and the ledger
// service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.loggingInterceptor,
		s.errorInterceptor,
		s.tokenInterceptor,
	))
	rpc.RegisterLedgerServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
