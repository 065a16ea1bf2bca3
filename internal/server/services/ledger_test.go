package services

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"500", 500, true},
		{" 500 ", 500, true},
		{"500.0", 500, true},
		{"5e2", 500, true},
		{"9223372036854775807", 9223372036854775807, true},
		{"9223372036854775808", 0, false},
		{"0", 0, false},
		{"-5", 0, false},
		{"1.5", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if !tt.ok {
				assert.ErrorIs(t, err, common.ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransfer_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.signup(t, "alice", "Str0ng!Pass")
	bob, _ := f.signup(t, "bob", "Str0ng!Pass")
	f.fund(t, alice, 1000)

	tok, err := f.auth.Login(ctx, "alice", "Str0ng!Pass")
	require.NoError(t, err)
	sender, err := f.auth.Authenticate(ctx, tok.Token)
	require.NoError(t, err)

	newBalance, err := f.ledger.Transfer(ctx, sender, "bob", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), newBalance)
	assert.Equal(t, int64(500), f.reload(t, alice).Balance)
	assert.Equal(t, int64(500), f.reload(t, bob).Balance)

	// overdraft is rejected and changes nothing
	_, err = f.ledger.Transfer(ctx, sender, "bob", 2000)
	assert.ErrorIs(t, err, common.ErrBalanceInsufficient)
	assert.Equal(t, int64(500), f.reload(t, alice).Balance)
	assert.Equal(t, int64(500), f.reload(t, bob).Balance)
}

func TestTransfer_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.signup(t, "alice", "Str0ng!Pass")
	f.signup(t, "bob", "Str0ng!Pass")
	f.fund(t, alice, 100)

	tests := []struct {
		name     string
		receiver string
		value    int64
		wantErr  error
	}{
		{"zero", "bob", 0, common.ErrBadRequest},
		{"negative", "bob", -1, common.ErrBadRequest},
		{"empty receiver", "  ", 1, common.ErrBadRequest},
		{"self", " Alice", 1, common.ErrBadRequest},
		{"unknown receiver", "carol", 1, common.ErrReceiverNotFound},
		{"synthetic admin name", "admin_root", 1, common.ErrReceiverNotFound},
		{"insufficient", "bob", 101, common.ErrBalanceInsufficient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Transfer(ctx, alice, tt.receiver, tt.value)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int64(100), f.reload(t, alice).Balance)
		})
	}
}

func TestTransfer_ZeroBalanceReceiverAccepted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.signup(t, "alice", "Str0ng!Pass")
	bob, _ := f.signup(t, "bob", "Str0ng!Pass")
	f.fund(t, alice, 1)

	_, err := f.ledger.Transfer(ctx, alice, "BOB", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.reload(t, bob).Balance)
	assert.Equal(t, int64(0), f.reload(t, alice).Balance)
}

func TestTransfer_LogsOnlyWhenEnabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.signup(t, "alice", "Str0ng!Pass")
	bob, _ := f.signup(t, "bob", "Str0ng!Pass")
	f.fund(t, alice, 1000)

	on := true
	_, err := f.accounts.ApplySettings(ctx, alice, SettingsPatch{TransactionLogging: &on})
	require.NoError(t, err)

	// alice's handle is stale; the ledger reads fresh settings
	_, err = f.ledger.Transfer(ctx, alice, "bob", 300)
	require.NoError(t, err)
	_, err = f.ledger.Transfer(ctx, alice, "bob", 200)
	require.NoError(t, err)

	aliceLog, err := f.ledger.Transactions(ctx, alice)
	require.NoError(t, err)
	require.Len(t, aliceLog, 2)
	assert.Equal(t, "alice", aliceLog[0].Sender)
	assert.Equal(t, "bob", aliceLog[0].Receiver)
	assert.Equal(t, int64(300), aliceLog[0].Value)
	assert.Equal(t, int64(200), aliceLog[1].Value)

	bobLog, err := f.ledger.Transactions(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobLog)
}

func TestCreditFromAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bob, _ := f.signup(t, "bob", "Str0ng!Pass")

	on := true
	_, err := f.accounts.ApplySettings(ctx, bob, SettingsPatch{TransactionLogging: &on})
	require.NoError(t, err)

	require.NoError(t, f.ledger.CreditFromAdmin(ctx, "Root", "bob", 250))
	assert.Equal(t, int64(250), f.reload(t, bob).Balance)

	log, err := f.ledger.Transactions(ctx, bob)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "admin_root", log[0].Sender)
	assert.Equal(t, "bob", log[0].Receiver)

	assert.ErrorIs(t, f.ledger.CreditFromAdmin(ctx, "root", "carol", 1), common.ErrReceiverNotFound)
	assert.ErrorIs(t, f.ledger.CreditFromAdmin(ctx, "root", "bob", 0), common.ErrBadRequest)
	assert.ErrorIs(t, f.ledger.CreditFromAdmin(ctx, "root", "", 5), common.ErrBadRequest)
}

func TestBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.signup(t, "alice", "Str0ng!Pass")
	f.fund(t, alice, 42)

	// the handle still says 0
	bal, err := f.ledger.Balance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(42), bal)
}

func TestTransfer_ConcurrentConservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.signup(t, "alice", "Str0ng!Pass")
	bob, _ := f.signup(t, "bob", "Str0ng!Pass")
	f.fund(t, alice, 1000)
	f.fund(t, bob, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.ledger.Transfer(ctx, alice, "bob", 70)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.ledger.Transfer(ctx, bob, "alice", 30)
		}()
	}
	wg.Wait()

	a := f.reload(t, alice).Balance
	b := f.reload(t, bob).Balance
	assert.GreaterOrEqual(t, a, int64(0))
	assert.GreaterOrEqual(t, b, int64(0))
	assert.Equal(t, int64(2000), a+b)
}

func TestCreditFromAdmin_OverflowRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, _ := f.signup(t, "alice", "Str0ng!Pass")
	bob, _ := f.signup(t, "bob", "Str0ng!Pass")
	f.fund(t, alice, 10)

	require.NoError(t, f.ledger.CreditFromAdmin(ctx, "root", "bob", math.MaxInt64))

	err := f.ledger.CreditFromAdmin(ctx, "root", "bob", 2)
	assert.ErrorIs(t, err, common.ErrBadRequest)
	assert.Equal(t, int64(math.MaxInt64), f.reload(t, bob).Balance)

	// the debit is undone together with the refused credit
	_, err = f.ledger.Transfer(ctx, alice, "bob", 5)
	assert.ErrorIs(t, err, common.ErrBadRequest)
	assert.Equal(t, int64(10), f.reload(t, alice).Balance)
	assert.Equal(t, int64(math.MaxInt64), f.reload(t, bob).Balance)
}

func TestTransfer_FailureAfterDebitRollsBack(t *testing.T) {
	tests := []struct {
		name         string
		failCredit   bool
		failAppendAt int
	}{
		{name: "credit fails", failCredit: true},
		{name: "sender log append fails", failAppendAt: 1},
		{name: "receiver log append fails", failAppendAt: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := repomanager.NewMemoryRepositoryManager()
			store := &failingStore{MemoryRepositoryManager: mem}
			f := newFixtureWithStore(t, store, mem)

			alice, _ := f.signup(t, "alice", "Str0ng!Pass")
			bob, _ := f.signup(t, "bob", "Str0ng!Pass")
			f.fund(t, alice, 100)
			f.fund(t, bob, 7)

			on := true
			for _, u := range []*models.User{alice, bob} {
				_, err := f.accounts.ApplySettings(ctx, u, SettingsPatch{TransactionLogging: &on})
				require.NoError(t, err)
			}

			store.failCredit = tt.failCredit
			store.failAppendAt = tt.failAppendAt

			_, err := f.ledger.Transfer(ctx, alice, "bob", 40)
			require.ErrorIs(t, err, common.ErrInternal)
			require.ErrorIs(t, err, errBoom)

			assert.Equal(t, int64(100), f.reload(t, alice).Balance)
			assert.Equal(t, int64(7), f.reload(t, bob).Balance)

			aliceLog, err := f.ledger.Transactions(ctx, alice)
			require.NoError(t, err)
			assert.Empty(t, aliceLog)
			bobLog, err := f.ledger.Transactions(ctx, bob)
			require.NoError(t, err)
			assert.Empty(t, bobLog)
		})
	}
}
