package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/client/client"
	"github.com/dmitrijs2005/coffeedia/internal/client/config"
	"github.com/dmitrijs2005/coffeedia/internal/client/metrics"
	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/client/services"
	"github.com/dmitrijs2005/coffeedia/internal/client/session"
	"github.com/dmitrijs2005/coffeedia/internal/client/tokenstore"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
)

// sessionService is the part of session.Controller the commands use.
type sessionService interface {
	State() session.State
	Init(ctx context.Context)
	Login(ctx context.Context, username, password string) (*models.User, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.User, error)
	Logout(ctx context.Context)
	RefreshUser(ctx context.Context) (*models.User, error)
	Close()
}

// sessionInfo feeds the status command.
type sessionInfo interface {
	TimeToExpiry(ctx context.Context) time.Duration
	RefreshState() client.RefreshState
}

type App struct {
	config  *config.Config
	session sessionService
	info    sessionInfo
	catalog map[string]collection
	metrics *metrics.Metrics
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
	closers []func() error
}

// statusInfo joins the token store's expiry with the client's refresh state.
type statusInfo struct {
	store *tokenstore.Store
	api   *client.APIClient
}

func (s statusInfo) TimeToExpiry(ctx context.Context) time.Duration { return s.store.TimeToExpiry(ctx) }
func (s statusInfo) RefreshState() client.RefreshState              { return s.api.RefreshState() }

// NewApp opens the local database and wires the client stack described by c.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	log := logging.New(os.Stderr, c.LogLevel, c.LogFormat)

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	m := metrics.New()
	store := tokenstore.New(db, log)
	api := client.NewAPIClient(c.ServerURL+c.APIPrefix, store,
		client.WithTimeout(c.RequestTimeout),
		client.WithMetrics(m),
		client.WithLogger(log),
	)
	auth := services.NewAuthService(api, store, log)
	api.UseRefresher(auth)

	api.OnSessionExpired(func(context.Context) {
		fmt.Fprintln(out, "Your session has expired. Please log in again.")
	})

	sess := session.New(auth, api, log,
		session.WithCheckInterval(c.ExpiryCheckInterval),
		session.WithRefreshThreshold(c.RefreshThreshold),
	)

	return &App{
		config:  c,
		session: sess,
		info:    statusInfo{store: store, api: api},
		catalog: newCatalog(api),
		metrics: m,
		log:     log,
		reader:  bufio.NewReader(in),
		out:     out,
		closers: []func() error{closeDB(db)},
	}, nil
}

func closeDB(db *sql.DB) func() error {
	return func() error { return db.Close() }
}

// Run restores the previous session and serves the REPL until exit.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

// Close stops the session's background work and releases the database.
func (a *App) Close() {
	a.session.Close()
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) isLoggedIn() bool {
	return a.session.State().IsAuthenticated
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
