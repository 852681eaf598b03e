package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"ai-grocery-checklist/internal/clipper"
	"ai-grocery-checklist/internal/config"
	"ai-grocery-checklist/internal/database"
	"ai-grocery-checklist/internal/generator"
	"ai-grocery-checklist/internal/llm"
	"ai-grocery-checklist/internal/metrics"
	"ai-grocery-checklist/internal/shopping"
	"ai-grocery-checklist/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Backend is the storage selected by configuration: the KV behind every save
// slot and, for SQLite, the usage store sharing the same database.
type Backend struct {
	KV       shopping.KV
	Usage    *metrics.Store
	DataPath string
	db       *database.DB
}

// OpenBackend opens the storage named by cfg.StorageBackend.
func OpenBackend(cfg *config.Config) (*Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite, "":
		db, err := database.NewDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return &Backend{
			KV:       database.NewSavedListKV(db.SQL),
			Usage:    metrics.NewStore(db.SQL),
			DataPath: filepath.Dir(cfg.DatabasePath),
			db:       db,
		}, nil
	case config.BackendFile:
		fs, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return &Backend{KV: fs, DataPath: cfg.StoragePath}, nil
	case config.BackendMemory:
		return &Backend{KV: shopping.NewMemoryKV()}, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// Close releases the database, if any.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// App holds the application's dependencies.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Provider llm.Provider
	Backend  *Backend
	Registry *prometheus.Registry
	Recorder *metrics.Recorder
	Sessions *Manager
	Clipper  *clipper.Clipper
}

// New wires the model provider, storage, metrics and session manager.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLMProvider, err)
	}

	backend, err := OpenBackend(cfg)
	if err != nil {
		provider.Close()
		return nil, err
	}

	a := NewWithDeps(cfg, logger, provider, backend)
	logger.Info("application ready",
		zap.String("provider", cfg.LLMProvider),
		zap.String("model", provider.Model()),
		zap.String("storage", cfg.StorageBackend))
	return a, nil
}

// NewWithDeps wires an App around an existing provider and backend.
func NewWithDeps(cfg *config.Config, logger *zap.Logger, provider llm.Provider, backend *Backend) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(backend.Usage, metrics.NewCollectors(reg), logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Provider: provider,
		Backend:  backend,
		Registry: reg,
		Recorder: recorder,
		Sessions: NewManager(backend.KV, generator.New(provider), recorder, logger),
		Clipper:  clipper.NewClipper(),
	}
}

// Close releases the provider and the storage.
func (a *App) Close() error {
	return errors.Join(a.Provider.Close(), a.Backend.Close())
}

// ClipInput fetches url and stores its readable text as the session input.
func (a *App) ClipInput(ctx context.Context, s *Session, url string) (*clipper.Notes, error) {
	notes, err := a.Clipper.ClipURL(ctx, url)
	if err != nil {
		a.Logger.Warn("failed to clip url", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	s.SetInput(notes.Text)
	return notes, nil
}

// UsageReport returns recent daily usage and a health snapshot. The usage
// slice is nil when the backend keeps no usage history.
func (a *App) UsageReport(ctx context.Context, days int) ([]metrics.DailyUsage, metrics.SysHealth, error) {
	health := metrics.GetSysHealth(a.Backend.DataPath)
	if a.Backend.Usage == nil {
		return nil, health, nil
	}
	usage, err := a.Backend.Usage.GetDailyUsage(ctx, days)
	if err != nil {
		return nil, health, fmt.Errorf("failed to read usage: %w", err)
	}
	return usage, health, nil
}
