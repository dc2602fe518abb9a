package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/ProConnect-Lab/proconnect-backend/internal/router"
	"github.com/ProConnect-Lab/proconnect-backend/internal/session"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/database"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting proconnect api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	var sqlxDB *sqlx.DB
	if strings.EqualFold(os.Getenv("STORE"), "memory") {
		sugar.Warn("STORE=memory: data is kept in process and lost on exit")
		st = store.NewMemory()
	} else {
		cfg := database.ConfigFromEnv()
		sqlDB, err := database.Connect(cfg)
		if err != nil {
			sugar.Fatalf("db connect: %v", err)
		}
		sqlxDB = sqlx.NewDb(sqlDB, cfg.Driver)
		defer sqlxDB.Close()

		pg := store.NewPostgres(sqlxDB)
		schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = pg.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			sugar.Fatalf("ensure schema: %v", err)
		}
		st = pg
	}

	sessCfg := session.ConfigFromEnv()
	if sessCfg.Generated {
		sugar.Warn("TOKEN_SECRET is not set; tokens will not survive a restart")
	}

	httpCfg := router.ConfigFromEnv()
	handler := router.RegisterRoutes(sugar, httpCfg, router.Deps{Store: st, Session: sessCfg})
	srv := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: httpCfg.ReadHeaderTimeout,
	}

	go func() {
		sugar.Infow("http server listening", "addr", httpCfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if sqlxDB != nil {
		if err := sqlxDB.PingContext(doneCtx); err != nil {
			sugar.Warnf("db ping on shutdown failed: %v", err)
		}
	}

	sugar.Info("goodbye")
}
