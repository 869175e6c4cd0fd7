package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"estate-assistant-backend/internal/assistant"
	"estate-assistant-backend/internal/config"
	"estate-assistant-backend/internal/db"
	"estate-assistant-backend/internal/marketplace"
	"estate-assistant-backend/internal/provider"
	"estate-assistant-backend/internal/store"
)

const completionCachePrefix = "estate-assistant:completion:"

// Backend holds what every conversation shares. Generator, Archive and
// Database are optional.
type Backend struct {
	Generator   assistant.Generator
	Prompts     provider.PromptSpec
	Marketplace assistant.Marketplace
	Archive     store.Archive
	Database    *db.DB
	// Providers lists the chain in attempt order, for health reporting.
	Providers []provider.Config
	Log       *logrus.Logger

	closers []func() error
}

// NewBackend wires the provider chain, marketplace client and transcript
// archive from cfg.
func NewBackend(cfg config.Config, log *logrus.Logger) (*Backend, error) {
	b := &Backend{Log: log}

	cfgs := provider.Declared(cfg.Providers)
	if cfg.ProvidersFile != "" {
		var err error
		if cfgs, err = provider.LoadConfigs(cfg.ProvidersFile, cfg.Providers); err != nil {
			return nil, err
		}
	}
	// per-call deadlines come from the chain
	providers, err := provider.Build(cfgs, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("failed to build providers: %w", err)
	}
	opts := []provider.ChainOption{provider.WithTimeout(cfg.ProviderTimeout), provider.WithLogger(log)}
	if cfg.RedisURL != "" {
		cache, err := provider.NewRedisCacheFromURL(cfg.RedisURL, completionCachePrefix, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, cache.Close)
		opts = append(opts, provider.WithCache(cache))
		log.Info("completion cache enabled")
	}
	chain := provider.NewChain(providers, opts...)
	b.Generator = chain
	b.Providers = chain.Providers()

	b.Prompts = provider.DefaultPromptSpec()
	if cfg.PromptsFile != "" {
		if b.Prompts, err = provider.LoadPromptSpec(cfg.PromptsFile); err != nil {
			b.Close()
			return nil, err
		}
	}

	b.Marketplace = marketplace.NewClient(cfg.MarketplaceURL, &http.Client{Timeout: 20 * time.Second})

	switch {
	case cfg.DatabaseURL != "":
		database, err := db.New(cfg.DatabaseURL, log)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		b.closers = append(b.closers, database.Close)
		log.Info("database connection established")

		if err := database.RunMigrations(db.Migrations); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database migrations completed")

		b.Database = database
		b.Archive = store.NewDatabaseStore(database)
	case cfg.TranscriptDir != "":
		b.Archive = store.NewFileArchive(cfg.TranscriptDir)
		log.WithField("dir", cfg.TranscriptDir).Info("archiving transcripts to files")
	}

	return b, nil
}

// NewConversation builds a conversation for visitorID and, when an archive
// is configured, records it.
func (b *Backend) NewConversation(visitorID string) (*assistant.Orchestrator, error) {
	log := b.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	conv, err := assistant.New(assistant.Deps{
		Generator: b.Generator,
		Prompts:   b.Prompts,
		Log:       log,
	}.WithMarketplace(b.Marketplace))
	if err != nil {
		return nil, err
	}
	if b.Archive != nil {
		store.Record(conv, visitorID, b.Archive, log.WithField("visitor", visitorID))
	}
	return conv, nil
}

// Close releases the cache and database connections.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
