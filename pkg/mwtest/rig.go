// Package mwtest is the embeddable entry point for the microwave acceptance
// test rig. It wires the session engine to a measurement driver, the HTTP
// control surface, and the optional MQTT, Postgres, and sample-log
// collaborators, from a single YAML config.
package mwtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/adapters/daqsim"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/adapters/httpapi"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/adapters/mqttpub"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/adapters/opcuadaq"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/adapters/reportdb"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/adapters/samplelog"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/adapters/serialdaq"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/app/config"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/app/session"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/ports"
)

const connectTimeout = 10 * time.Second

// Option customizes the dependencies used by a Rig.
type Option func(*overrides)

type overrides struct {
	logger    *zap.Logger
	driver    ports.Driver
	presenter ports.Presenter
	sink      ports.ReportSink
	sampleLog ports.SampleLog
}

// WithLogger replaces the config-derived logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *overrides) { o.logger = logger }
}

// WithDriver injects a custom measurement driver (bench hardware,
// simulators, replayed captures).
func WithDriver(d ports.Driver) Option {
	return func(o *overrides) { o.driver = d }
}

// WithPresenter adds an extra live-data consumer alongside the built-ins.
func WithPresenter(p ports.Presenter) Option {
	return func(o *overrides) { o.presenter = p }
}

// WithReportSink replaces the Postgres report store.
func WithReportSink(s ports.ReportSink) Option {
	return func(o *overrides) { o.sink = s }
}

// WithSampleLog replaces the file-backed raw sample log.
func WithSampleLog(l ports.SampleLog) Option {
	return func(o *overrides) { o.sampleLog = l }
}

// Rig is a fully wired test stand.
type Rig struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *session.Engine
	driver ports.Driver
	http   *httpapi.Server
	mqtt   *mqttpub.Publisher
	sink   ports.ReportSink
}

// New loads the config file and assembles a Rig from it.
func New(path string, opts ...Option) (*Rig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig assembles a Rig from an already validated config.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Rig, error) {
	var ov overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&ov)
		}
	}

	logger := ov.logger
	if logger == nil {
		logger = newLogger(cfg.Logging)
	}

	driver := ov.driver
	if driver == nil {
		var err error
		driver, err = buildDriver(cfg)
		if err != nil {
			return nil, err
		}
	}

	engineOpts := []session.Option{session.WithLogger(logger)}

	var mqttPub *mqttpub.Publisher
	if cfg.MQTT.Broker != "" {
		var err error
		mqttPub, err = mqttpub.Connect(mqttpub.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.Topic,
		}, logger)
		if err != nil {
			_ = driver.Close()
			return nil, err
		}
		engineOpts = append(engineOpts, session.WithPresenter(mqttPub))
	}
	if ov.presenter != nil {
		engineOpts = append(engineOpts, session.WithPresenter(ov.presenter))
	}

	sink := ov.sink
	if sink == nil && cfg.Report.Postgres.ConnString != "" {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		pg, err := reportdb.Open(ctx, reportdb.Config{
			ConnString: cfg.Report.Postgres.ConnString,
			Table:      cfg.Report.Postgres.Table,
		})
		cancel()
		if err != nil {
			_ = driver.Close()
			return nil, err
		}
		sink = pg
	}
	if sink != nil {
		engineOpts = append(engineOpts, session.WithReportSink(sink))
	}

	sampleLog := ov.sampleLog
	if sampleLog == nil && cfg.Report.SampleLogDir != "" {
		var err error
		sampleLog, err = samplelog.NewWriter(cfg.Report.SampleLogDir)
		if err != nil {
			_ = driver.Close()
			return nil, err
		}
	}
	if sampleLog != nil {
		engineOpts = append(engineOpts, session.WithSampleLog(sampleLog))
	}

	engine := session.NewEngine(cfg, driver, engineOpts...)

	return &Rig{
		cfg:    cfg,
		logger: logger,
		engine: engine,
		driver: driver,
		http:   httpapi.NewServer(cfg.HTTP.Addr, engine, logger),
		mqtt:   mqttPub,
		sink:   sink,
	}, nil
}

func buildDriver(cfg *config.Config) (ports.Driver, error) {
	switch cfg.Driver.Kind {
	case "sim":
		return daqsim.New(defaultSimProfiles()), nil
	case "serial":
		return serialdaq.Open(cfg.Driver.Serial)
	case "opcua":
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return opcuadaq.Connect(ctx, cfg.Driver.OPCUA)
	default:
		return nil, fmt.Errorf("unknown driver kind %q", cfg.Driver.Kind)
	}
}

// defaultSimProfiles mimics a combination run: magnetron at 20% duty,
// grill at 80%, lamp steady on.
func defaultSimProfiles() map[domain.Channel]daqsim.Profile {
	profiles := daqsim.DutyProfiles(map[domain.Channel]float64{
		domain.ChannelMicrowave: 20,
		domain.ChannelGrill:     80,
	})
	profiles[domain.ChannelLamp] = daqsim.Profile{Period: time.Hour, OnTime: time.Hour}
	return profiles
}

// Engine exposes the session engine so callers can embed the rig and issue
// commands directly instead of going through HTTP.
func (r *Rig) Engine() *session.Engine { return r.engine }

// Run serves the rig until ctx is cancelled, then shuts everything down.
func (r *Rig) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() {
		if err := r.http.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	runErr := make(chan error, 1)
	go func() {
		runErr <- r.engine.Run(ctx)
		close(runErr)
	}()

	var errs []error
	select {
	case err := <-httpErr:
		if err != nil {
			errs = append(errs, err)
		}
		cancel()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.http.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := <-runErr; err != nil {
		errs = append(errs, err)
	}

	r.engine.Close()
	if r.mqtt != nil {
		if err := r.mqtt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := r.sink.(interface{ Close() error }); ok && closer != nil {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.driver.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
