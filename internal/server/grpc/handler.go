package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/buildinfo"
	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/rpc"
	"github.com/dmitrijs2005/pocketledger/internal/server/services"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *rpc.Empty) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{App: buildinfo.AppName, Version: buildinfo.Version()}, nil
}

func (s *GRPCServer) GetToken(ctx context.Context, req *rpc.GetTokenRequest) (*rpc.GetTokenResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.ErrCredentialsMissing
	}

	session, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	return &rpc.GetTokenResponse{Token: session.Token, ExpiresIn: int64(session.ExpiresIn / time.Second)}, nil
}

func (s *GRPCServer) Revoke(ctx context.Context, _ *rpc.Empty) (*rpc.SuccessResponse, error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.RevokeSessions(ctx, user); err != nil {
		return nil, err
	}
	return &rpc.SuccessResponse{Success: true}, nil
}

func (s *GRPCServer) NewUser(ctx context.Context, req *rpc.NewUserRequest) (*rpc.PhraseResponse, error) {
	s.logger.Info(ctx, "Registration request")

	res, err := s.accounts.Create(ctx, services.CreateAccountRequest{
		Username:       req.Username,
		Password:       req.Password,
		RecoveryMethod: req.RecoveryMethod,
		Email:          req.Email,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Registered", "username", res.User.Username)
	return &rpc.PhraseResponse{Success: true, Phrase: res.Phrase}, nil
}

func (s *GRPCServer) GetSettings(ctx context.Context, _ *rpc.Empty) (*rpc.Settings, error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}

	view := s.accounts.Settings(user)
	return &rpc.Settings{
		TransactionLogging:    view.TransactionLogging,
		SMSNotificationNumber: view.SMSNotificationNumber,
		RecoveryMethod:        string(view.RecoveryMethod),
		Email:                 view.Email,
		EmailVerified:         view.EmailVerified,
	}, nil
}

func (s *GRPCServer) ApplySettings(ctx context.Context, req *rpc.ApplySettingsRequest) (*rpc.PhraseResponse, error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}

	patch, err := services.ParseSettingsPatch(req.Settings)
	if err != nil {
		return nil, err
	}
	phrase, err := s.accounts.ApplySettings(ctx, user, patch)
	if err != nil {
		return nil, err
	}
	return &rpc.PhraseResponse{Success: true, Phrase: phrase}, nil
}

func (s *GRPCServer) GetBalance(ctx context.Context, _ *rpc.Empty) (*rpc.BalanceResponse, error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledger.Balance(ctx, user)
	if err != nil {
		return nil, err
	}
	return &rpc.BalanceResponse{Balance: balance}, nil
}

func (s *GRPCServer) GetTransactions(ctx context.Context, _ *rpc.Empty) (*rpc.TransactionsResponse, error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.ledger.Transactions(ctx, user)
	if err != nil {
		return nil, err
	}

	out := make([]rpc.Transaction, 0, len(list))
	for _, t := range list {
		out = append(out, rpc.Transaction{
			ID:        t.ID,
			Sender:    t.Sender,
			Receiver:  t.Receiver,
			Value:     t.Value,
			Timestamp: t.Timestamp,
		})
	}
	return &rpc.TransactionsResponse{Transactions: out}, nil
}

func (s *GRPCServer) Send(ctx context.Context, req *rpc.SendRequest) (*rpc.SendResponse, error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.Receiver == "" || req.Value == "" {
		return nil, common.ErrBadRequest
	}
	value, err := services.ParseAmount(string(req.Value))
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.Transfer(ctx, user, req.Receiver, value)
	if err != nil {
		return nil, err
	}
	return &rpc.SendResponse{Success: true, Balance: balance}, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *rpc.ChangePasswordRequest) (*rpc.SuccessResponse, error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.ChangePassword(ctx, user, req.OldPassword, req.NewPassword); err != nil {
		return nil, err
	}
	return &rpc.SuccessResponse{Success: true}, nil
}

func (s *GRPCServer) ConfirmEmail(ctx context.Context, req *rpc.ConfirmEmailRequest) (*rpc.SuccessResponse, error) {
	if err := s.accounts.ConfirmEmail(ctx, req.Token); err != nil {
		return nil, err
	}
	return &rpc.SuccessResponse{Success: true}, nil
}

func (s *GRPCServer) AddMoney(ctx context.Context, req *rpc.AddMoneyRequest) (*rpc.SuccessResponse, error) {
	admin, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.Receiver == "" || req.Value == "" {
		return nil, common.ErrBadRequest
	}
	value, err := services.ParseAmount(string(req.Value))
	if err != nil {
		return nil, err
	}

	if err := s.ledger.CreditFromAdmin(ctx, admin.Username, req.Receiver, value); err != nil {
		return nil, err
	}
	return &rpc.SuccessResponse{Success: true}, nil
}
