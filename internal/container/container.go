package container

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	"github.com/anime-shed/image-search-go/internal/catalogue"
	"github.com/anime-shed/image-search-go/internal/config"
	"github.com/anime-shed/image-search-go/internal/factory"
	"github.com/anime-shed/image-search-go/internal/ingest"
	"github.com/anime-shed/image-search-go/internal/logger"
	"github.com/anime-shed/image-search-go/internal/observer"
	"github.com/anime-shed/image-search-go/internal/ocr"
	"github.com/anime-shed/image-search-go/internal/service"
	"github.com/anime-shed/image-search-go/internal/transport"
	"github.com/anime-shed/image-search-go/internal/worker"
)

// Container holds all application dependencies
type Container struct {
	config    *config.Config
	db        *sql.DB
	pool      *catalogue.Pool
	workers   *worker.WorkerPool
	events    *observer.EventPublisher
	metrics   *observer.MetricsObserver
	hub       *transport.Hub
	catalogue *catalogue.Catalogue
	service   service.CatalogueService

	handlerOnce sync.Once
	handler     http.Handler
	closeOnce   sync.Once
}

// Option adjusts how the container is built
type Option func(*options)

type options struct {
	extractor ocr.Extractor
}

// WithExtractor replaces the tesseract text extractor
func WithExtractor(e ocr.Extractor) Option {
	return func(o *options) { o.extractor = e }
}

// NewContainer opens the catalogue and wires every component. The default
// taggers are registered, which adds missing columns but runs no backfill.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := catalogue.OpenDB(cfg.DBDriver, cfg.DBPath, cfg.DBPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalogue: %w", err)
	}
	pool, err := catalogue.NewPool(ctx, db, cfg.DBPoolSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	c := &Container{
		config:  cfg,
		db:      db,
		pool:    pool,
		workers: worker.NewWorkerPool(cfg.WorkerCount),
		events:  observer.NewEventPublisher(),
		metrics: observer.NewMetricsObserver(),
		hub:     transport.NewHub(),
	}
	c.events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	c.events.Subscribe(c.metrics)
	c.events.Subscribe(c.hub)

	if err := c.build(ctx, o); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context, o options) error {
	components := factory.NewComponentFactory(c.config, o.extractor)
	validator := components.Validator()
	loader, err := components.CreateLoader(validator)
	if err != nil {
		return fmt.Errorf("failed to create image loader: %w", err)
	}

	c.catalogue, err = catalogue.Open(ctx, c.pool, analyzer.NewRegistry(), loader, catalogue.WithEvents(c.events))
	if err != nil {
		return err
	}

	taggers, err := components.TaggerFactory.CreateTaggers()
	if err != nil {
		return err
	}
	for _, e := range taggers {
		if _, err := c.catalogue.Register(ctx, e.Name, e.Tagger); err != nil {
			return fmt.Errorf("failed to register tagger %s: %w", e.Name, err)
		}
	}

	c.service = service.NewCatalogueService(c.catalogue, c.workers, ingest.New(c.config.IndexDir), validator)

	logger.WithFields(logrus.Fields{
		"db_path":   c.config.DBPath,
		"db_driver": c.config.DBDriver,
		"pool_size": c.pool.Size(),
		"workers":   c.workers.GetStats().Workers,
		"taggers":   len(taggers),
	}).Debug("Container initialized")
	return nil
}

// Service returns the catalogue service
func (c *Container) Service() service.CatalogueService {
	return c.service
}

// Catalogue returns the underlying catalogue
func (c *Container) Catalogue() *catalogue.Catalogue {
	return c.catalogue
}

// Handler returns the HTTP handler, building it on first use
func (c *Container) Handler() http.Handler {
	c.handlerOnce.Do(func() {
		c.handler = transport.NewHandler(c.service, c.config, c.hub, c.status)
	})
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) status() transport.Status {
	return transport.Status{
		Workers: c.workers.GetStats(),
		Passes:  c.metrics.GetMetrics(),
	}
}

// Close stops the worker pool, waiting up to the shutdown timeout, then
// releases the event stream and the database.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if !c.workers.Shutdown(c.config.ShutdownTimeout) {
			logger.WithField("timeout", c.config.ShutdownTimeout.String()).Warn("Worker pool shutdown timed out; abandoning running units")
		}
		c.events.Flush()
		c.hub.Close()
		if perr := c.pool.Close(); perr != nil {
			err = perr
		}
		if derr := c.db.Close(); derr != nil && err == nil {
			err = derr
		}
	})
	return err
}
