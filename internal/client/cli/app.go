package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/client/client"
	"github.com/dmitrijs2005/pocketledger/internal/client/config"
	"github.com/dmitrijs2005/pocketledger/internal/rpc"
)

type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// statusCheckInterval is how often the watcher pings the server.
const statusCheckInterval = 5 * time.Second

// ledgerClient is the part of client.GRPCClient the commands use.
type ledgerClient interface {
	LoggedIn() bool
	Ping(ctx context.Context) (string, error)
	Register(ctx context.Context, req *rpc.NewUserRequest) ([]string, error)
	Login(ctx context.Context, username, password string) (time.Duration, error)
	Logout(ctx context.Context) error
	Balance(ctx context.Context) (int64, error)
	Send(ctx context.Context, receiver, value string) (int64, error)
	Transactions(ctx context.Context) ([]rpc.Transaction, error)
	Settings(ctx context.Context) (*rpc.Settings, error)
	ApplySettings(ctx context.Context, patch map[string]any) ([]string, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	ConfirmEmail(ctx context.Context, token string) error
	Close() error
}

type App struct {
	config   *config.Config
	api      ledgerClient
	reader   *bufio.Reader
	out      io.Writer
	userName string

	mu   sync.Mutex
	mode Mode
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return newApp(c, apiClient, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, api ledgerClient, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: api, reader: bufio.NewReader(in), out: out}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) getMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Run probes the server once, starts the status watcher and blocks in the
// REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.api.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Println("Welcome to ledgerctl (type 'help' for commands)")
	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, statusCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" && a.isLoggedIn() {
		s = a.userName + " "
	}
	s += string(a.getMode())
	if s != "" {
		s = "(" + s + ")"
	}
	return s
}

func (a *App) checkOnline(ctx context.Context) {
	if _, err := a.api.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// StartOnlineStatusWatcher pings the server every interval until ctx ends.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
