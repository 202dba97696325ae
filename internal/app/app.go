package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/sessionforge/authgate/internal/config"
	"github.com/sessionforge/authgate/internal/db"
	"github.com/sessionforge/authgate/internal/httpapi"
	"github.com/sessionforge/authgate/internal/identity"
	"github.com/sessionforge/authgate/internal/quota"
	"github.com/sessionforge/authgate/internal/ratelimit"
	"github.com/sessionforge/authgate/internal/session"
)

// Migrate opens the database and runs migrations.
func Migrate(cfg config.Config) error {
	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the session gateway server and blocks until ctx is done or
// the listener fails.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	store := quota.New(ctx, quota.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	limiter := ratelimit.NewLimiter(store, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	verifier := identity.NewClient(cfg.Identity.URL, cfg.Identity.APIKey)

	cookieName := ""
	if cfg.Identity.ProjectRef != "" {
		cookieName = identity.CookieName(cfg.Identity.ProjectRef)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:         conn,
		Limiter:    limiter,
		Verifier:   verifier,
		Sessions:   session.NewStore(conn, cfg.Session.TTL, cfg.Session.StaleAfter),
		Users:      session.NewUserStore(conn),
		CookieName: cookieName,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting server on %s", addr)
	if errListen := srv.ListenAndServe(); errListen != nil && errListen != http.ErrServerClosed {
		return errListen
	}
	return nil
}
