// Package server assembles the docchat server from its configuration: it
// opens the stores, wires repositories and services, and runs the HTTP and
// gRPC endpoints until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/docchat/internal/logging"
	"github.com/dmitrijs2005/docchat/internal/server/auth"
	"github.com/dmitrijs2005/docchat/internal/server/backend"
	"github.com/dmitrijs2005/docchat/internal/server/config"
	"github.com/dmitrijs2005/docchat/internal/server/httpapi"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/chats"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docchat/internal/server/services"
	"github.com/dmitrijs2005/docchat/internal/server/session"
	"github.com/dmitrijs2005/docchat/internal/server/storage"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/docchat/internal/server/grpc"
)

const janitorInterval = 10 * time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	closers []func(context.Context) error

	users *services.UserService
	http  *httpapi.Server
	grpc  *gs.GRPCServer

	janitor *session.PostgresDenylist
}

// NewApp validates cfg and connects everything the server needs. On error
// whatever was already opened is closed again.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{config: cfg, logger: logger}
	if err := app.init(ctx); err != nil {
		app.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	cfg, logger := app.config, app.logger

	var err error
	app.db, err = repomanager.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, func(context.Context) error { return app.db.Close() })

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	tokens, err := auth.NewTokenService([]byte(cfg.SecretKey))
	if err != nil {
		return err
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashConcurrency)

	revocations, err := app.openRevocationStore(ctx, rm)
	if err != nil {
		return err
	}

	chatRepo, err := app.openChatRepository(ctx, rm)
	if err != nil {
		return err
	}

	blobs, err := storage.NewS3Store(ctx, storage.Options{
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3RootUser,
		SecretKey:    cfg.S3RootPassword,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return fmt.Errorf("blob storage: %w", err)
	}

	var rag backend.Backend = backend.NewPlaceholder()
	if cfg.BackendURL != "" {
		rag = backend.NewHTTPBackend(cfg.BackendURL, nil)
	} else {
		logger.Warn(ctx, "no backend URL configured, using placeholder replies")
	}

	var gateOpts []auth.GateOption
	var userOpts []services.UserServiceOption
	if revocations != nil {
		gateOpts = append(gateOpts, auth.WithDenylist(revocations))
		userOpts = append(userOpts, services.WithRevocationStore(revocations))
	}
	gate := auth.NewGate(tokens, logger, gateOpts...)

	app.users = services.NewUserService(app.db, rm, chatRepo, blobs, hasher, tokens, cfg.TokenValidityDuration, logger, userOpts...)
	chatService := services.NewChatService(chatRepo, rag, cfg.BackendPollInterval, cfg.ReplyTimeout, logger)
	documentService := services.NewDocumentService(app.db, rm, chatRepo, blobs, rag, cfg.MaxUploadSize, cfg.S3PresignDuration, logger)

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := httpapi.NewHandler(app.users, chatService, documentService, gate,
		auth.DefaultCookieOptions(cfg.Production), cfg.MaxUploadSize, logger)

	app.http = httpapi.NewServer(cfg.EndpointAddrHTTP, httpapi.NewRouter(handler, cfg.AllowedOrigins), logger)
	app.grpc = gs.NewGRPCServer(cfg.EndpointAddrGRPC, logger, gate)

	return nil
}

func (app *App) openRevocationStore(ctx context.Context, rm repomanager.RepositoryManager) (auth.RevocationStore, error) {
	switch app.config.RevocationStore {
	case config.RevocationPostgres:
		d := session.NewPostgresDenylist(app.db, rm)
		app.janitor = d
		return d, nil
	case config.RevocationRedis:
		d, err := session.NewRedisDenylist(ctx, app.config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return d.Close() })
		return d, nil
	default:
		return nil, nil
	}
}

func (app *App) openChatRepository(ctx context.Context, rm repomanager.RepositoryManager) (chats.Repository, error) {
	if app.config.ChatStore != config.ChatStoreMongo {
		return rm.Chats(app.db), nil
	}

	client, err := chats.Connect(ctx, app.config.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("mongo init error: %w", err)
	}
	app.closers = append(app.closers, client.Disconnect)

	repo := chats.NewMongoRepository(client.Database(app.config.MongoDatabase))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return repo, nil
}

// Users exposes the account service for maintenance commands.
func (app *App) Users() *services.UserService {
	return app.users
}

// Run serves until SIGINT/SIGTERM or until one of the servers fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.http.Run(ctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := app.grpc.Run(ctx); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	if app.janitor != nil {
		g.Go(func() error {
			app.janitor.RunJanitor(ctx, janitorInterval, app.logger)
			return nil
		})
	}

	err := g.Wait()
	app.Close(context.Background())
	return err
}

// Close releases connections in reverse order of opening.
func (app *App) Close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			app.logger.Error(ctx, "close", "error", err)
		}
	}
	app.closers = nil
}
