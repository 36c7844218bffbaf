// Package httpapi exposes the development backend over HTTP/JSON with gin.
// Every response uses the {success, message, data} envelope the client
// expects.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	clientmodels "github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
	"github.com/dmitrijs2005/coffeedia/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// Catalog groups the three resource services.
type Catalog struct {
	Beans     *services.CatalogService[clientmodels.Bean]
	Recipes   *services.CatalogService[clientmodels.Recipe]
	Equipment *services.CatalogService[clientmodels.Equipment]
}

// NewRouter builds the gin engine with every route mounted under prefix.
func NewRouter(prefix string, l logging.Logger, us *services.UserService, cat Catalog) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(l))

	api := r.Group(prefix)
	protected := api.Group("", requireAuth(us.ParseAccessToken))

	(&authHandler{users: us}).register(api, protected)

	registerCatalog(api, protected, "/beans", cat.Beans)
	registerCatalog(api, protected, "/recipes", cat.Recipes)
	registerCatalog(api, protected, "/equipments", cat.Equipment)

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "no such endpoint")
	})
	return r
}

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, h http.Handler, l logging.Logger) *Server {
	return &Server{address: address, handler: h, logger: l.With("module", "http_server")}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
