package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// ledgerAPI is the subset of rpc.LedgerServiceClient used here.
type ledgerAPI interface {
	Ping(ctx context.Context, in *rpc.Empty, opts ...grpc.CallOption) (*rpc.PingResponse, error)
	GetToken(ctx context.Context, in *rpc.GetTokenRequest, opts ...grpc.CallOption) (*rpc.GetTokenResponse, error)
	Revoke(ctx context.Context, in *rpc.Empty, opts ...grpc.CallOption) (*rpc.SuccessResponse, error)
	NewUser(ctx context.Context, in *rpc.NewUserRequest, opts ...grpc.CallOption) (*rpc.PhraseResponse, error)
	GetSettings(ctx context.Context, in *rpc.Empty, opts ...grpc.CallOption) (*rpc.Settings, error)
	ApplySettings(ctx context.Context, in *rpc.ApplySettingsRequest, opts ...grpc.CallOption) (*rpc.PhraseResponse, error)
	GetBalance(ctx context.Context, in *rpc.Empty, opts ...grpc.CallOption) (*rpc.BalanceResponse, error)
	GetTransactions(ctx context.Context, in *rpc.Empty, opts ...grpc.CallOption) (*rpc.TransactionsResponse, error)
	Send(ctx context.Context, in *rpc.SendRequest, opts ...grpc.CallOption) (*rpc.SendResponse, error)
	ChangePassword(ctx context.Context, in *rpc.ChangePasswordRequest, opts ...grpc.CallOption) (*rpc.SuccessResponse, error)
	ConfirmEmail(ctx context.Context, in *rpc.ConfirmEmailRequest, opts ...grpc.CallOption) (*rpc.SuccessResponse, error)
}

// GRPCClient is safe for concurrent use.
type GRPCClient struct {
	conn    *grpc.ClientConn
	api     ledgerAPI
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

// NewGRPCClient prepares a lazy connection to endpoint. No network traffic
// happens until the first call. A zero timeout disables per-call deadlines.
func NewGRPCClient(endpoint string, timeout time.Duration) (*GRPCClient, error) {
	return newGRPCClient(endpoint, timeout)
}

func newGRPCClient(endpoint string, timeout time.Duration, extra ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{timeout: timeout}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.tokenInterceptor),
	}, extra...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.api = rpc.NewLedgerServiceClient(conn)
	return c, nil
}

func (c *GRPCClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *GRPCClient) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// LoggedIn reports whether a session token is held.
func (c *GRPCClient) LoggedIn() bool {
	return c.Token() != ""
}

func (c *GRPCClient) tokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := c.Token(); token != "" {
		ctx = rpc.WithToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (c *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *GRPCClient) requireSession() error {
	if !c.LoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Ping returns the server's application name and version.
func (c *GRPCClient) Ping(ctx context.Context) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.Ping(ctx, &rpc.Empty{})
	if err != nil {
		return "", mapError(err)
	}
	return resp.App + " " + resp.Version, nil
}

// Register creates an account. For the phrase method the generated
// recovery phrase is returned.
func (c *GRPCClient) Register(ctx context.Context, req *rpc.NewUserRequest) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.NewUser(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Phrase, nil
}

// Login obtains a session token and keeps it for later calls.
func (c *GRPCClient) Login(ctx context.Context, username, password string) (time.Duration, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.GetToken(ctx, &rpc.GetTokenRequest{Username: username, Password: password})
	if err != nil {
		return 0, mapError(err)
	}
	c.setToken(resp.Token)
	return time.Duration(resp.ExpiresIn) * time.Second, nil
}

// Logout revokes every session of the user on the server and forgets the
// local token. The token is dropped even when the server call fails.
func (c *GRPCClient) Logout(ctx context.Context) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.api.Revoke(ctx, &rpc.Empty{})
	c.setToken("")
	return mapError(err)
}

func (c *GRPCClient) Balance(ctx context.Context) (int64, error) {
	if err := c.requireSession(); err != nil {
		return 0, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.GetBalance(ctx, &rpc.Empty{})
	if err != nil {
		return 0, mapError(err)
	}
	return resp.Balance, nil
}

// Send transfers value to receiver and returns the new balance.
func (c *GRPCClient) Send(ctx context.Context, receiver, value string) (int64, error) {
	if err := c.requireSession(); err != nil {
		return 0, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.Send(ctx, &rpc.SendRequest{Receiver: receiver, Value: rpc.Amount(value)})
	if err != nil {
		return 0, mapError(err)
	}
	return resp.Balance, nil
}

func (c *GRPCClient) Transactions(ctx context.Context) ([]rpc.Transaction, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.GetTransactions(ctx, &rpc.Empty{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Transactions, nil
}

func (c *GRPCClient) Settings(ctx context.Context) (*rpc.Settings, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.GetSettings(ctx, &rpc.Empty{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

// ApplySettings sends a settings patch. A new recovery phrase is returned
// when the patch switched recovery to the phrase method.
func (c *GRPCClient) ApplySettings(ctx context.Context, patch map[string]any) ([]string, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.ApplySettings(ctx, &rpc.ApplySettingsRequest{Settings: patch})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Phrase, nil
}

// ChangePassword updates the password. Existing sessions stay valid.
func (c *GRPCClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.api.ChangePassword(ctx, &rpc.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword})
	return mapError(err)
}

func (c *GRPCClient) ConfirmEmail(ctx context.Context, token string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.api.ConfirmEmail(ctx, &rpc.ConfirmEmailRequest{Token: token})
	return mapError(err)
}

// mapError turns a gRPC status into a client error.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUnavailable
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.Unauthenticated, codes.PermissionDenied:
		return &RemoteError{Code: st.Message(), Unauthorized: true}
	default:
		return &RemoteError{Code: st.Message()}
	}
}
