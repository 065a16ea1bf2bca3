package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/logging"
	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a client-supplied amount into cents. Only positive
// integral values that fit in int64 are accepted; "500", "500.0" and "5e2"
// are all 500.
func ParseAmount(raw string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, common.ErrBadRequest
	}
	if !d.IsInteger() || d.Sign() <= 0 || d.Cmp(maxAmount) > 0 {
		return 0, common.ErrBadRequest
	}
	return d.IntPart(), nil
}

// LedgerService moves value between accounts.
type LedgerService struct {
	repos repomanager.RepositoryManager
	log   logging.Logger
	now   func() time.Time
}

func NewLedgerService(repos repomanager.RepositoryManager, log logging.Logger) *LedgerService {
	return &LedgerService{repos: repos, log: log, now: time.Now}
}

// logFor appends a record to owner's log when owner has logging enabled.
func (s *LedgerService) logFor(ctx context.Context, repos repomanager.Repositories, owner *models.User, sender, receiver string, value int64, at time.Time) error {
	if !owner.Settings.TransactionLogging {
		return nil
	}
	return repos.Transactions().Append(ctx, &models.Transaction{
		OwnerID:   owner.ID,
		Sender:    sender,
		Receiver:  receiver,
		Value:     value,
		Timestamp: at,
	})
}

// creditError reports a credit that would push the balance past int64 as a
// bad request; the unit of work rolls back either way.
func creditError(err error) error {
	if errors.Is(err, common.ErrBalanceOverflow) {
		return common.ErrBadRequest
	}
	return err
}

// Transfer moves value from sender to the account named receiverUsername
// and returns the sender's new balance. The debit, the credit and both log
// entries commit together or not at all.
func (s *LedgerService) Transfer(ctx context.Context, sender *models.User, receiverUsername string, value int64) (int64, error) {
	receiverName := common.NormalizeUsername(receiverUsername)
	if value <= 0 || receiverName == "" {
		return 0, common.ErrBadRequest
	}

	var newBalance int64
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		receiver, err := repos.Users().GetByUsername(ctx, receiverName)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrReceiverNotFound
			}
			return err
		}
		if receiver.ID == sender.ID {
			return common.ErrBadRequest
		}

		// sender settings may have changed since the caller loaded it
		from, err := repos.Users().GetByID(ctx, sender.ID)
		if err != nil {
			return err
		}

		newBalance, err = repos.Users().Debit(ctx, from.ID, value)
		if err != nil {
			if errors.Is(err, common.ErrInsufficientBalance) {
				return common.ErrBalanceInsufficient
			}
			return err
		}
		if _, err := repos.Users().Credit(ctx, receiver.ID, value); err != nil {
			return creditError(err)
		}

		at := s.now().UTC()
		if err := s.logFor(ctx, repos, from, from.Username, receiver.Username, value, at); err != nil {
			return err
		}
		return s.logFor(ctx, repos, receiver, from.Username, receiver.Username, value, at)
	})
	if err != nil {
		return 0, common.Internal(err)
	}

	s.log.Info(ctx, "transfer committed", "sender_id", sender.ID, "value", value)
	return newBalance, nil
}

// CreditFromAdmin mints value into receiverUsername's account. The sender
// recorded in the log is the synthetic name admin_<adminUsername>.
func (s *LedgerService) CreditFromAdmin(ctx context.Context, adminUsername, receiverUsername string, value int64) error {
	receiverName := common.NormalizeUsername(receiverUsername)
	if value <= 0 || receiverName == "" {
		return common.ErrBadRequest
	}
	senderName := common.AdminSenderPrefix + common.NormalizeUsername(adminUsername)

	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		receiver, err := repos.Users().GetByUsername(ctx, receiverName)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrReceiverNotFound
			}
			return err
		}
		if _, err := repos.Users().Credit(ctx, receiver.ID, value); err != nil {
			return creditError(err)
		}
		return s.logFor(ctx, repos, receiver, senderName, receiver.Username, value, s.now().UTC())
	})
	if err != nil {
		return common.Internal(err)
	}

	s.log.Info(ctx, "admin credit committed", "admin", adminUsername, "receiver", receiverName, "value", value)
	return nil
}

// Balance returns the user's current balance from the store.
func (s *LedgerService) Balance(ctx context.Context, user *models.User) (int64, error) {
	fresh, err := s.repos.Users().GetByID(ctx, user.ID)
	if err != nil {
		return 0, common.Internal(err)
	}
	return fresh.Balance, nil
}

// Transactions returns the user's log, oldest first.
func (s *LedgerService) Transactions(ctx context.Context, user *models.User) ([]*models.Transaction, error) {
	txs, err := s.repos.Transactions().ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, common.Internal(err)
	}
	return txs, nil
}
