package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/pairline/pairline/api"
	"github.com/pairline/pairline/config"
	"github.com/pairline/pairline/pipeline"
	"github.com/pairline/pairline/storage"
	"github.com/pairline/pairline/stores"
	"github.com/pairline/pairline/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Daemon owns the process lifecycle: logger, storage, the pipeline tree
// and the HTTP API, started in that order and torn down in reverse.
type Daemon struct {
	config     *config.Config
	version    string
	gitCommit  string
	instanceID string

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	store      storage.Storage
	components []pipeline.Component
	sampler    *utils.RecordSampler
	server     *echo.Echo
	log        *zap.SugaredLogger
}

func NewDaemon(cfg *config.Config, version, gitCommit string) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		config:     cfg,
		version:    version,
		gitCommit:  gitCommit,
		instanceID: uuid.NewString(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (d *Daemon) Run() error {
	d.initLogger()
	d.log = zap.L().Sugar().With("service", "daemon")
	d.log.Infow("Starting pairline", "version", d.version, "build", d.gitCommit, "instance", d.instanceID)

	if err := d.initStorage(); err != nil {
		return err
	}

	for _, component := range d.config.Pipeline {
		if err := d.buildComponent(component, nil); err != nil {
			return err
		}
	}

	for _, component := range d.components {
		d.wg.Add(1)
		go component.Run(&d.wg, d.ctx)
	}

	d.sampler = utils.NewRecordSampler(stores.GetStatsStore())
	d.serveAPI()
	return nil
}

func (d *Daemon) initLogger() {
	level, err := zapcore.ParseLevel(d.config.Logger.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	logger, buildErr := zapConfig.Build()
	if buildErr != nil {
		return
	}
	zap.ReplaceGlobals(logger)
}

func (d *Daemon) initStorage() error {
	if d.config.Database.Path == "" {
		d.log.Info("No database path configured, positions are kept in memory only")
		d.store = storage.NewMemoryStorage()
	} else {
		diskStore, err := storage.NewDiskStorage(d.config.Database.Path)
		if err != nil {
			return err
		}
		d.store = diskStore
	}

	stores.SetKvStore(stores.NewKvStore(d.store))
	return nil
}

// buildComponent instantiates one node of the pipeline tree and links it
// to its parent. Children are built before any component runs, so no
// published message can miss a subscriber.
func (d *Daemon) buildComponent(def config.PipelineComponent, parent pipeline.Component) error {
	if def.Disabled {
		d.log.Infow("Skipping disabled pipeline component", "name", def.Name)
		return nil
	}

	component, err := pipeline.InstantiateComponent(def.Name, def.Config)
	if err != nil {
		return err
	}

	if parent != nil {
		component.Link(parent.Subscribe())
	}

	d.components = append(d.components, component)

	for _, child := range def.Connects {
		if err := d.buildComponent(child, component); err != nil {
			return err
		}
	}
	return nil
}

func (d *Daemon) serveAPI() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	p := prometheus.NewPrometheus("pairline", nil)
	p.Use(e)

	g := e.Group(d.config.BaseURL)
	api.RegisterApiHandlers(g, d.version, d.gitCommit, stores.GetStatsStore(), d.sampler)

	d.server = e
	go func() {
		if err := e.Start(d.config.Listener); err != nil {
			d.log.Infow("HTTP listener closed", "error", err)
		}
	}()
	d.log.Infow("Serving API", "listener", d.config.Listener)
}

func (d *Daemon) Close() {
	d.log.Info("Shutting down")
	d.cancel()
	d.wg.Wait()

	// all Run loops have returned at this point, Close only releases
	// file handles and subscriber channels
	for i := len(d.components) - 1; i >= 0; i-- {
		d.components[i].Close()
	}

	if d.sampler != nil {
		d.sampler.Close()
	}

	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.server.Shutdown(ctx); err != nil {
			d.log.Errorw("could not shut down API server", "error", err)
		}
	}

	if d.store != nil {
		d.store.Close()
	}

	d.log.Info("Shutdown complete")
}
