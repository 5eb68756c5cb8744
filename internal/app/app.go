// Package app provides application-level wiring and dependency injection,
// assembling repositories, services, and the HTTP handler from external
// resources that main() provides.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"chartly/internal/api"
	"chartly/internal/config"
	"chartly/internal/connector"
	"chartly/internal/db/crypto"
	"chartly/internal/db/repository"
	"chartly/internal/scheduler"
	"chartly/internal/service/pipeline"
	"chartly/internal/warehouse"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger. The app package wires everything else.
type Deps struct {
	Cfg         *config.Config
	MetaWriteDB *sql.DB
	MetaReadDB  *sql.DB
	WarehouseDB *sql.DB
	Logger      *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Engine    *pipeline.Engine
	Scheduler *scheduler.Scheduler
	Router    http.Handler
}

// New wires repositories, the connector, the warehouse store, the pipeline
// engine, the cache-warming scheduler, and the HTTP router.
func New(deps Deps) (*App, error) {
	cfg := deps.Cfg

	// Repositories: writes on the single-connection pool, reads on the wider one.
	queryRepo := repository.NewQueryRepo(deps.MetaWriteDB)
	cacheRepo := repository.NewCacheRepo(deps.MetaWriteDB)
	auditRepo := repository.NewAuditRepo(deps.MetaWriteDB)
	connRepo := repository.NewConnectionRepo(deps.MetaReadDB)
	userRepo := repository.NewUserRepo(deps.MetaReadDB)

	// An unset key means stored credentials are plaintext (development
	// setups); the connector accepts a nil encryptor for that case.
	var encryptor *crypto.Encryptor
	if cfg.EncryptionKey != "" {
		var err error
		encryptor, err = crypto.NewEncryptor(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("encryption key: %w", err)
		}
	}

	conn := connector.NewSQLConnector(encryptor, deps.Logger.With("component", "connector"))
	store := warehouse.NewStore(deps.WarehouseDB, deps.Logger.With("component", "warehouse"))

	eng := pipeline.NewEngine(
		queryRepo, connRepo, cacheRepo, auditRepo, conn, store,
		pipeline.Options{CacheTTL: cfg.CacheTTL, QueryTimeout: cfg.QueryTimeout},
		deps.Logger.With("component", "pipeline"),
	)

	sched := scheduler.New(eng, queryRepo, deps.Logger.With("component", "scheduler"))

	handler := api.NewHandler(eng, deps.Logger.With("component", "api"))
	router := api.NewRouter(handler, userRepo, api.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, deps.Logger.With("component", "api"))

	return &App{Engine: eng, Scheduler: sched, Router: router}, nil
}
