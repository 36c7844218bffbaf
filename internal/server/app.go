// Package server wires and runs the development backend: an in-memory
// implementation of the Coffeedia REST contract used for local runs and
// end-to-end tests of the client.
package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/coffeedia/internal/logging"
	"github.com/dmitrijs2005/coffeedia/internal/server/config"
	"github.com/dmitrijs2005/coffeedia/internal/server/httpapi"
	"github.com/dmitrijs2005/coffeedia/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/coffeedia/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/coffeedia/internal/server/repositories/users"
	"github.com/dmitrijs2005/coffeedia/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *httpapi.Server
}

func NewApp(cfg *config.Config) *App {
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	gin.SetMode(gin.ReleaseMode)

	us := services.NewUserService(users.NewMemoryRepository(), refreshtokens.NewMemoryRepository(), cfg)
	router := httpapi.NewRouter(cfg.APIPrefix, logger, us, httpapi.Catalog{
		Beans:     services.NewCatalogService(catalog.NewBeans()),
		Recipes:   services.NewCatalogService(catalog.NewRecipes()),
		Equipment: services.NewCatalogService(catalog.NewEquipment()),
	})

	return &App{
		config: cfg,
		logger: logger,
		server: httpapi.NewServer(cfg.EndpointAddr, router, logger),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or ctx is cancelled.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
