package rpc

import (
	"context"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pocketledger.LedgerService"

const (
	MethodPing            = "Ping"
	MethodGetToken        = "GetToken"
	MethodRevoke          = "Revoke"
	MethodNewUser         = "NewUser"
	MethodGetSettings     = "GetSettings"
	MethodApplySettings   = "ApplySettings"
	MethodGetBalance      = "GetBalance"
	MethodGetTransactions = "GetTransactions"
	MethodSend            = "Send"
	MethodChangePassword  = "ChangePassword"
	MethodConfirmEmail    = "ConfirmEmail"
	MethodAddMoney        = "AddMoney"
)

// FullMethod returns the "/service/method" path used by interceptors.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LedgerServiceServer is implemented by the server-side handlers.
type LedgerServiceServer interface {
	Ping(context.Context, *Empty) (*PingResponse, error)
	GetToken(context.Context, *GetTokenRequest) (*GetTokenResponse, error)
	Revoke(context.Context, *Empty) (*SuccessResponse, error)
	NewUser(context.Context, *NewUserRequest) (*PhraseResponse, error)
	GetSettings(context.Context, *Empty) (*Settings, error)
	ApplySettings(context.Context, *ApplySettingsRequest) (*PhraseResponse, error)
	GetBalance(context.Context, *Empty) (*BalanceResponse, error)
	GetTransactions(context.Context, *Empty) (*TransactionsResponse, error)
	Send(context.Context, *SendRequest) (*SendResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*SuccessResponse, error)
	ConfirmEmail(context.Context, *ConfirmEmailRequest) (*SuccessResponse, error)
	AddMoney(context.Context, *AddMoneyRequest) (*SuccessResponse, error)
}

func unary[Req, Resp any](method string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(LedgerServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LedgerServiceDesc describes the service for grpc.Server.RegisterService.
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, LedgerServiceServer.Ping),
		unary(MethodGetToken, LedgerServiceServer.GetToken),
		unary(MethodRevoke, LedgerServiceServer.Revoke),
		unary(MethodNewUser, LedgerServiceServer.NewUser),
		unary(MethodGetSettings, LedgerServiceServer.GetSettings),
		unary(MethodApplySettings, LedgerServiceServer.ApplySettings),
		unary(MethodGetBalance, LedgerServiceServer.GetBalance),
		unary(MethodGetTransactions, LedgerServiceServer.GetTransactions),
		unary(MethodSend, LedgerServiceServer.Send),
		unary(MethodChangePassword, LedgerServiceServer.ChangePassword),
		unary(MethodConfirmEmail, LedgerServiceServer.ConfirmEmail),
		unary(MethodAddMoney, LedgerServiceServer.AddMoney),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pocketledger/ledger.json",
}

func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// WithToken attaches a session token to outgoing call metadata.
func WithToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.TokenMetadataKey, token)
	return metadata.NewOutgoingContext(ctx, md)
}

// LedgerServiceClient is the client stub. Every call uses the JSON codec.
type LedgerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerServiceClient(cc grpc.ClientConnInterface) *LedgerServiceClient {
	return &LedgerServiceClient{cc: cc}
}

func (c *LedgerServiceClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, FullMethod(method), in, out, opts...)
}

func (c *LedgerServiceClient) Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PingResponse, error) {
	out := new(PingResponse)
	if err := c.invoke(ctx, MethodPing, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) GetToken(ctx context.Context, in *GetTokenRequest, opts ...grpc.CallOption) (*GetTokenResponse, error) {
	out := new(GetTokenResponse)
	if err := c.invoke(ctx, MethodGetToken, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) Revoke(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SuccessResponse, error) {
	out := new(SuccessResponse)
	if err := c.invoke(ctx, MethodRevoke, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) NewUser(ctx context.Context, in *NewUserRequest, opts ...grpc.CallOption) (*PhraseResponse, error) {
	out := new(PhraseResponse)
	if err := c.invoke(ctx, MethodNewUser, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) GetSettings(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Settings, error) {
	out := new(Settings)
	if err := c.invoke(ctx, MethodGetSettings, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) ApplySettings(ctx context.Context, in *ApplySettingsRequest, opts ...grpc.CallOption) (*PhraseResponse, error) {
	out := new(PhraseResponse)
	if err := c.invoke(ctx, MethodApplySettings, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) GetBalance(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*BalanceResponse, error) {
	out := new(BalanceResponse)
	if err := c.invoke(ctx, MethodGetBalance, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) GetTransactions(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*TransactionsResponse, error) {
	out := new(TransactionsResponse)
	if err := c.invoke(ctx, MethodGetTransactions, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	out := new(SendResponse)
	if err := c.invoke(ctx, MethodSend, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*SuccessResponse, error) {
	out := new(SuccessResponse)
	if err := c.invoke(ctx, MethodChangePassword, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) ConfirmEmail(ctx context.Context, in *ConfirmEmailRequest, opts ...grpc.CallOption) (*SuccessResponse, error) {
	out := new(SuccessResponse)
	if err := c.invoke(ctx, MethodConfirmEmail, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) AddMoney(ctx context.Context, in *AddMoneyRequest, opts ...grpc.CallOption) (*SuccessResponse, error) {
	out := new(SuccessResponse)
	if err := c.invoke(ctx, MethodAddMoney, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
