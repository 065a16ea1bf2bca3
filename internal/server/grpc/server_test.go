package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/cryptox"
	"github.com/dmitrijs2005/pocketledger/internal/logging"
	"github.com/dmitrijs2005/pocketledger/internal/rpc"
	"github.com/dmitrijs2005/pocketledger/internal/server/auth"
	"github.com/dmitrijs2005/pocketledger/internal/server/notify"
	"github.com/dmitrijs2005/pocketledger/internal/server/passwordpolicy"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pocketledger/internal/server/services"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func newTestServer(t *testing.T) (*GRPCServer, *services.AccountService) {
	t.Helper()

	store := repomanager.NewMemoryRepositoryManager()
	codec := auth.NewCodec([]byte("test-secret"))
	hasher := cryptox.NewHasher(bcrypt.MinCost)
	log := logging.Nop{}

	authSvc, err := services.NewAuthService(store, codec, hasher, 30*time.Minute, log)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	accounts := services.NewAccountService(store, passwordpolicy.MinLength(8), hasher, codec,
		notify.NewLogNotifier(log), log, services.AccountOptions{EmailTokenTTL: time.Hour, PublicBaseURL: "http://ledger.test"})

	return NewGRPCServer("bufnet", log, authSvc, services.NewLedgerService(store, log), accounts), accounts
}

// dial serves srv on an in-memory listener and returns a connected client.
func dial(t *testing.T, srv *GRPCServer) *rpc.LedgerServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return rpc.NewLedgerServiceClient(conn)
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	srv, _ := newTestServer(t)
	lis := bufconn.Listen(1 << 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.address = "127.0.0.1:99999"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
