package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/cryptox"
	"github.com/dmitrijs2005/pocketledger/internal/logging"
	"github.com/dmitrijs2005/pocketledger/internal/server/auth"
	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/dmitrijs2005/pocketledger/internal/server/notify"
	"github.com/dmitrijs2005/pocketledger/internal/server/passwordpolicy"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeNotifier records verification messages synchronously.
type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.VerificationMessage
	err  error
}

func (f *fakeNotifier) SendVerification(_ context.Context, msg notify.VerificationMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

func (f *fakeNotifier) sent() []notify.VerificationMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.VerificationMessage(nil), f.msgs...)
}

type fixture struct {
	store    repomanager.RepositoryManager
	mem      *repomanager.MemoryRepositoryManager
	auth     *AuthService
	ledger   *LedgerService
	accounts *AccountService
	notifier *fakeNotifier
	codec    *auth.Codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := repomanager.NewMemoryRepositoryManager()
	return newFixtureWithStore(t, mem, mem)
}

func newFixtureWithStore(t *testing.T, store repomanager.RepositoryManager, mem *repomanager.MemoryRepositoryManager) *fixture {
	t.Helper()

	codec := auth.NewCodec([]byte("test-secret"))
	hasher := cryptox.NewHasher(bcrypt.MinCost)
	log := logging.Nop{}

	authSvc, err := NewAuthService(store, codec, hasher, 30*time.Minute, log)
	require.NoError(t, err)

	n := &fakeNotifier{}
	return &fixture{
		store:  store,
		mem:    mem,
		auth:   authSvc,
		ledger: NewLedgerService(store, log),
		accounts: NewAccountService(store, passwordpolicy.MinLength(8), hasher, codec, n, log, AccountOptions{
			EmailTokenTTL: time.Hour,
			PublicBaseURL: "http://ledger.test/",
		}),
		notifier: n,
		codec:    codec,
	}
}

// signup creates a phrase-recovery account and returns it with the phrase.
func (f *fixture) signup(t *testing.T, username, password string) (*models.User, []string) {
	t.Helper()
	res, err := f.accounts.Create(context.Background(), CreateAccountRequest{
		Username:       username,
		Password:       password,
		RecoveryMethod: "phrase",
	})
	require.NoError(t, err)
	return res.User, res.Phrase
}

func (f *fixture) fund(t *testing.T, user *models.User, value int64) {
	t.Helper()
	_, err := f.store.Users().Credit(context.Background(), user.ID, value)
	require.NoError(t, err)
}

func (f *fixture) reload(t *testing.T, user *models.User) *models.User {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	return u
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "http://ledger.test/user/confirmEmail?"))
	return u.Query().Get("token")
}

// conflictingStore makes the first n Update calls fail with a version
// conflict, as if another writer got there first.
type conflictingStore struct {
	*repomanager.MemoryRepositoryManager
	mu        sync.Mutex
	conflicts int
}

func (c *conflictingStore) Users() users.Repository {
	return conflictingUsers{Repository: c.MemoryRepositoryManager.Users(), store: c}
}

type conflictingUsers struct {
	users.Repository
	store *conflictingStore
}

func (c conflictingUsers) Update(ctx context.Context, u *models.User) error {
	c.store.mu.Lock()
	if c.store.conflicts > 0 {
		c.store.conflicts--
		c.store.mu.Unlock()
		return common.ErrVersionConflict
	}
	c.store.mu.Unlock()
	return c.Repository.Update(ctx, u)
}

var errBoom = errors.New("boom")

// failingStore breaks units of work after the debit: either the credit
// fails or the n-th log append does.
type failingStore struct {
	*repomanager.MemoryRepositoryManager
	failCredit   bool
	failAppendAt int
}

func (s *failingStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos repomanager.Repositories) error) error {
	return s.MemoryRepositoryManager.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		return fn(ctx, &failingRepos{Repositories: repos, store: s})
	})
}

type failingRepos struct {
	repomanager.Repositories
	store   *failingStore
	appends int
}

func (r *failingRepos) Users() users.Repository {
	return failingUsers{Repository: r.Repositories.Users(), fail: r.store.failCredit}
}

func (r *failingRepos) Transactions() transactions.Repository {
	return failingTransactions{Repository: r.Repositories.Transactions(), repos: r}
}

type failingUsers struct {
	users.Repository
	fail bool
}

func (u failingUsers) Credit(ctx context.Context, id string, value int64) (int64, error) {
	if u.fail {
		return 0, errBoom
	}
	return u.Repository.Credit(ctx, id, value)
}

type failingTransactions struct {
	transactions.Repository
	repos *failingRepos
}

func (t failingTransactions) Append(ctx context.Context, tx *models.Transaction) error {
	t.repos.appends++
	if t.repos.appends == t.repos.store.failAppendAt {
		return errBoom
	}
	return t.Repository.Append(ctx, tx)
}
