package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/client/client"
	"github.com/dmitrijs2005/pocketledger/internal/client/config"
	"github.com/dmitrijs2005/pocketledger/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	token     string
	pingErr   error
	err       error
	phrase    []string
	txs       []rpc.Transaction
	settings  *rpc.Settings
	closed    bool
	register  *rpc.NewUserRequest
	login     [2]string
	send      [2]string
	patch     map[string]any
	passwords [2]string
	confirmed string
}

func (f *fakeClient) LoggedIn() bool { return f.token != "" }
func (f *fakeClient) Ping(ctx context.Context) (string, error) {
	return "pocketledger 1.0", f.pingErr
}
func (f *fakeClient) Register(ctx context.Context, req *rpc.NewUserRequest) ([]string, error) {
	f.register = req
	return f.phrase, f.err
}
func (f *fakeClient) Login(ctx context.Context, username, password string) (time.Duration, error) {
	f.login = [2]string{username, password}
	if f.err != nil {
		return 0, f.err
	}
	f.token = "tok"
	return 30 * time.Minute, nil
}
func (f *fakeClient) Logout(ctx context.Context) error {
	f.token = ""
	return f.err
}
func (f *fakeClient) Balance(ctx context.Context) (int64, error) { return 990, f.err }
func (f *fakeClient) Send(ctx context.Context, receiver, value string) (int64, error) {
	f.send = [2]string{receiver, value}
	return 980, f.err
}
func (f *fakeClient) Transactions(ctx context.Context) ([]rpc.Transaction, error) {
	return f.txs, f.err
}
func (f *fakeClient) Settings(ctx context.Context) (*rpc.Settings, error) {
	return f.settings, f.err
}
func (f *fakeClient) ApplySettings(ctx context.Context, patch map[string]any) ([]string, error) {
	f.patch = patch
	return f.phrase, f.err
}
func (f *fakeClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	f.passwords = [2]string{oldPassword, newPassword}
	return f.err
}
func (f *fakeClient) ConfirmEmail(ctx context.Context, token string) error {
	f.confirmed = token
	return f.err
}
func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) {
		if len(pws) == 0 {
			return nil, errors.New("no more passwords")
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
}

func newTestApp(api *fakeClient, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return newApp(cfg, api, strings.NewReader(input), &out), &out
}

func TestApp_RegisterPhrase(t *testing.T) {
	stubPasswords(t, "Str0ng!Pass")
	api := &fakeClient{phrase: []string{"abandon", "ability", "able"}}
	app, out := newTestApp(api, "alice\nphrase\n")

	require.NoError(t, app.Register(context.Background()))
	assert.Equal(t, &rpc.NewUserRequest{Username: "alice", Password: "Str0ng!Pass", RecoveryMethod: "phrase"}, api.register)
	assert.Contains(t, out.String(), "abandon ability able")
}

func TestApp_RegisterEmail(t *testing.T) {
	stubPasswords(t, "Str0ng!Pass")
	api := &fakeClient{}
	app, out := newTestApp(api, "bob\nemail\nbob@example.com\n")

	require.NoError(t, app.Register(context.Background()))
	assert.Equal(t, "bob@example.com", api.register.Email)
	assert.Contains(t, out.String(), "Check your inbox")
}

func TestApp_RegisterFails(t *testing.T) {
	stubPasswords(t, "x")
	api := &fakeClient{err: &client.RemoteError{Code: "UserExists"}}
	app, _ := newTestApp(api, "alice\nphrase\n")

	err := app.Register(context.Background())
	require.EqualError(t, err, "UserExists")
}

func TestApp_LoginLogout(t *testing.T) {
	stubPasswords(t, "pw")
	api := &fakeClient{}
	app, out := newTestApp(api, "alice\n")
	app.setMode(ModeOnline)

	require.NoError(t, app.Login(context.Background()))
	assert.Equal(t, [2]string{"alice", "pw"}, api.login)
	assert.True(t, app.isLoggedIn())
	assert.Equal(t, "(alice online)", app.getStatus())
	assert.Contains(t, out.String(), "30m0s")

	require.NoError(t, app.Logout(context.Background()))
	assert.False(t, app.isLoggedIn())
	assert.Equal(t, "(online)", app.getStatus())
}

func TestApp_LoginPasswordReadFails(t *testing.T) {
	stubPasswords(t)
	api := &fakeClient{}
	app, _ := newTestApp(api, "alice\n")

	require.Error(t, app.Login(context.Background()))
	assert.Empty(t, api.login[0])
}

func TestApp_BalanceAndSend(t *testing.T) {
	api := &fakeClient{token: "tok"}
	app, out := newTestApp(api, "")
	ctx := context.Background()

	require.NoError(t, app.Balance(ctx))
	assert.Contains(t, out.String(), "Balance: 990")

	require.NoError(t, app.Send(ctx, []string{"bob", "10"}))
	assert.Equal(t, [2]string{"bob", "10"}, api.send)
	assert.Contains(t, out.String(), "Balance: 980")

	assert.ErrorIs(t, app.Send(ctx, []string{"bob"}), errUsage)
}

func TestApp_History(t *testing.T) {
	api := &fakeClient{token: "tok"}
	app, out := newTestApp(api, "")

	require.NoError(t, app.History(context.Background()))
	assert.Contains(t, out.String(), "No transactions.")

	out.Reset()
	api.txs = []rpc.Transaction{{ID: "1", Sender: "alice", Receiver: "bob", Value: 10, Timestamp: time.Now()}}
	require.NoError(t, app.History(context.Background()))
	assert.Contains(t, out.String(), "FROM")
	assert.Contains(t, out.String(), "alice")
	assert.Contains(t, out.String(), "bob")
}

func TestApp_Settings(t *testing.T) {
	num := "+15550100"
	api := &fakeClient{token: "tok", settings: &rpc.Settings{
		TransactionLogging: true, SMSNotificationNumber: &num, RecoveryMethod: "email", Email: "a@example.com",
	}}
	app, out := newTestApp(api, "")

	require.NoError(t, app.Settings(context.Background()))
	assert.Contains(t, out.String(), "+15550100")
	assert.Contains(t, out.String(), "a@example.com (verified: false)")
}

func TestApp_Set(t *testing.T) {
	api := &fakeClient{token: "tok"}
	app, _ := newTestApp(api, "")
	ctx := context.Background()

	require.NoError(t, app.Set(ctx, []string{"transactionLogging", "false", "smsNotificationNumber", "null"}))
	assert.Equal(t, map[string]any{"transactionLogging": false, "smsNotificationNumber": nil}, api.patch)

	assert.ErrorIs(t, app.Set(ctx, []string{"transactionLogging"}), errUsage)
	assert.ErrorIs(t, app.Set(ctx, nil), errUsage)
}

func TestApp_SetShowsNewPhrase(t *testing.T) {
	api := &fakeClient{token: "tok", phrase: []string{"w1", "w2"}}
	app, out := newTestApp(api, "")

	require.NoError(t, app.Set(context.Background(), []string{"recoveryMethod", "phrase"}))
	assert.Equal(t, map[string]any{"recoveryMethod": "phrase"}, api.patch)
	assert.Contains(t, out.String(), "w1 w2")
}

func TestSettingValue(t *testing.T) {
	assert.Nil(t, settingValue("null"))
	assert.Equal(t, true, settingValue("true"))
	assert.Equal(t, false, settingValue("false"))
	assert.Equal(t, "+15550100", settingValue("+15550100"))
	assert.Equal(t, "1", settingValue("1"))
}

func TestApp_ChangePasswordAndConfirm(t *testing.T) {
	stubPasswords(t, "old", "new")
	api := &fakeClient{token: "tok"}
	app, _ := newTestApp(api, "")
	ctx := context.Background()

	require.NoError(t, app.ChangePassword(ctx))
	assert.Equal(t, [2]string{"old", "new"}, api.passwords)

	require.NoError(t, app.Confirm(ctx, []string{"etok"}))
	assert.Equal(t, "etok", api.confirmed)
	assert.ErrorIs(t, app.Confirm(ctx, nil), errUsage)
}

func TestApp_PingSetsMode(t *testing.T) {
	api := &fakeClient{}
	app, out := newTestApp(api, "")

	require.NoError(t, app.Ping(context.Background()))
	assert.Equal(t, ModeOnline, app.getMode())
	assert.Contains(t, out.String(), "pocketledger 1.0")

	api.pingErr = client.ErrUnavailable
	require.ErrorIs(t, app.Ping(context.Background()), client.ErrUnavailable)
	assert.Equal(t, ModeOffline, app.getMode())
}

func TestApp_RunExitsOnEOFAndCloses(t *testing.T) {
	capturePrint(t)
	api := &fakeClient{}
	app, _ := newTestApp(api, "help\n")

	app.Run(context.Background())
	assert.True(t, api.closed)
	assert.Equal(t, ModeOnline, app.getMode())
}

func TestApp_StatusWatcherStopsOnCancel(t *testing.T) {
	api := &fakeClient{pingErr: client.ErrUnavailable}
	app, _ := newTestApp(api, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.StartOnlineStatusWatcher(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return app.getMode() == ModeOffline }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
