package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"blockmark/internal/blocks"
	"blockmark/internal/config"
	"blockmark/internal/domain"
	"blockmark/internal/service"
	"blockmark/internal/storage"
	"blockmark/internal/upload"
)

// App owns the storage, collaborators and background services of one
// blockmark process.
type App struct {
	cfg *config.Config

	db        *storage.DB // SQL documents, or only approvals when documents live in mongo
	mongo     *storage.MongoDocumentStore
	approvals *storage.ApprovalStore
	redis     *service.RedisEmitter

	emitter   service.EventEmitter
	uploader  blocks.Uploader
	docs      *service.DocumentService
	sessions  *service.SessionService
	autosaver *service.Autosaver
	watcher   *service.ImportWatcher

	cancel context.CancelFunc
}

// New opens storage and builds every service. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}
	if err := a.init(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.approvals = storage.NewApprovalStore(a.db)

	emitters := service.MultiEmitter{service.LogEmitter{}}
	if a.cfg.RedisURL != "" {
		r, err := service.NewRedisEmitter(ctx, a.cfg.RedisURL, a.cfg.RedisChannel)
		if err != nil {
			return err
		}
		a.redis = r
		emitters = append(emitters, r)
	}
	a.emitter = emitters

	if a.uploader, err = a.openUploader(ctx); err != nil {
		return err
	}

	a.docs = service.NewDocumentService(store, a.emitter, a.cfg.Required)
	a.docs.SetRevisions(storage.NewRevisionStore(a.db))
	a.sessions = service.NewSessionService(a.docs, a.uploader)
	if a.autosaver, err = service.NewAutosaver(a.sessions, a.cfg.Autosave); err != nil {
		return err
	}
	if a.cfg.ImportDir != "" {
		if a.watcher, err = service.NewImportWatcher(a.cfg.ImportDir, a.docs); err != nil {
			return err
		}
	}
	return nil
}

// openStore picks the document store for the configured driver. Approvals
// always go to SQL; with mongodb they use the local SQLite file.
func (a *App) openStore(ctx context.Context) (domain.DocumentStore, error) {
	cfg := a.cfg
	if cfg.DBDriver == "mongodb" {
		m, err := storage.OpenMongo(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		a.mongo = m
		db, err := storage.New(filepath.Join(cfg.DataDir, "blockmark.db"))
		if err != nil {
			return nil, err
		}
		a.db = db
		return m, nil
	}

	dialect, err := storage.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	dsn := cfg.DBPath()
	if dialect != storage.DialectSQLite && cfg.DatabaseURL == "" {
		dsn, err = storage.ConnParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Database: cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}.DSN(dialect)
		if err != nil {
			return nil, err
		}
	}
	db, err := storage.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", dialect, err)
	}
	a.db = db
	return storage.NewDocumentStore(db), nil
}

func (a *App) openUploader(ctx context.Context) (blocks.Uploader, error) {
	cfg := a.cfg
	if cfg.MinioEndpoint != "" {
		return upload.NewMinio(ctx, upload.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
	}
	return upload.NewLocal(cfg.UploadDir, cfg.UploadBaseURL)
}

func (a *App) Documents() *service.DocumentService { return a.docs }
func (a *App) Sessions() *service.SessionService   { return a.sessions }
func (a *App) Approvals() *storage.ApprovalStore   { return a.approvals }
func (a *App) Emitter() service.EventEmitter       { return a.emitter }

// Start runs autosave and the import watcher until Close.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.autosaver.Start()
	if a.watcher != nil {
		log.Printf("[IMPORT] watching %s", a.cfg.ImportDir)
		go a.watcher.Run(ctx)
	}
}

// Close stops background work, writes back dirty sessions and releases
// every connection.
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.autosaver != nil {
		a.autosaver.Stop()
	}
	if a.sessions != nil {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		a.sessions.Shutdown(flushCtx)
		cancel()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.mongo != nil {
		a.mongo.Close(context.WithoutCancel(ctx))
	}
	if a.db != nil {
		a.db.Close()
	}
}
