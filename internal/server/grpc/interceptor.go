package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/rpc"
	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userKey ctxKey = "user"

type access int

const (
	accessPublic access = iota
	accessUser
	accessAdmin
)

// methodAccess lists the methods that need a session. Anything absent is
// public.
var methodAccess = map[string]access{
	rpc.FullMethod(rpc.MethodRevoke):          accessUser,
	rpc.FullMethod(rpc.MethodGetSettings):     accessUser,
	rpc.FullMethod(rpc.MethodApplySettings):   accessUser,
	rpc.FullMethod(rpc.MethodGetBalance):      accessUser,
	rpc.FullMethod(rpc.MethodGetTransactions): accessUser,
	rpc.FullMethod(rpc.MethodSend):            accessUser,
	rpc.FullMethod(rpc.MethodChangePassword):  accessUser,
	rpc.FullMethod(rpc.MethodAddMoney):        accessAdmin,
}

func tokenFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.TokenMetadataKey)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// userFromContext returns the user attached by tokenInterceptor.
func userFromContext(ctx context.Context) (*models.User, error) {
	u, ok := ctx.Value(userKey).(*models.User)
	if !ok || u == nil {
		return nil, common.ErrNotAuthenticated
	}
	return u, nil
}

func (s *GRPCServer) tokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	level := methodAccess[info.FullMethod]
	if level == accessPublic {
		return handler(ctx, req)
	}

	token := tokenFromContext(ctx)

	var (
		user *models.User
		err  error
	)
	if level == accessAdmin {
		user, err = s.auth.RequireAdmin(ctx, token)
	} else {
		user, err = s.auth.Authenticate(ctx, token)
	}
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, userKey, user)
	return handler(ctx, req)
}

// errorInterceptor turns service errors into gRPC statuses whose message is
// the public error code.
func (s *GRPCServer) errorInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	if _, ok := status.FromError(err); ok {
		return nil, err
	}
	if common.KindOf(err) == common.KindDependency {
		s.logger.Error(ctx, "request failed", "method", info.FullMethod, "error", err)
	}
	return nil, toStatus(err)
}

func toStatus(err error) error {
	var code codes.Code
	switch common.KindOf(err) {
	case common.KindValidation, common.KindNotFound:
		code = codes.InvalidArgument
	case common.KindAuthentication:
		code = codes.Unauthenticated
	case common.KindAuthorization:
		code = codes.PermissionDenied
	case common.KindConflict:
		code = codes.AlreadyExists
	default:
		code = codes.Internal
	}
	return status.Error(code, common.CodeOf(err))
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "rpc",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}
