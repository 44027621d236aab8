package cmd

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/config"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/contxt"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/database"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/dispatcher"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/gate"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/metrics"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/mqtt"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/nanokvm"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/poller"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/publisher"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/server"
)

// BridgeCommand is the main entry point for the nanokvm bridge CLI
// command. It validates configuration and starts all services.
func BridgeCommand(ctx *cli.Context) error {
	cfg := &config.Config{
		Device: &config.DeviceConfig{
			Host:             ctx.String("nanokvm-host"),
			Username:         ctx.String("nanokvm-username"),
			Password:         ctx.String("nanokvm-password"),
			PollInterval:     ctx.Duration("poll-interval"),
			FailureThreshold: ctx.Int("failure-threshold"),
			QueueDepth:       ctx.Int("command-queue-depth"),
		},
		Mqtt: &config.MqttConfig{
			Host:     ctx.String("mqtt-host"),
			Username: ctx.String("mqtt-user"),
			Password: ctx.String("mqtt-pass"),
		},
		Server: &config.ServerConfig{
			Address:    ctx.String("http-addr"),
			Username:   ctx.String("api-username"),
			Password:   ctx.String("api-password"),
			SigningKey: ctx.String("api-signing-key"),
		},
		DatabaseURL: ctx.String("database-url"),
		LogLevel:    ctx.String("log-level"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	var db *database.Database
	if cfg.DatabaseURL != "" {
		conn, err := pgx.Connect(ctx.Context, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		db, err = database.NewDatabase(ctx.Context, conn)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	errorChan := make(chan error, 1000)
	svc := nanokvm.New(cfg.Device)
	return run(ctx.Context, cfg, svc, errorChan, logger, db)
}

func buildLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.Level = parsed
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func run(ctx context.Context, cfg *config.Config, svc KVMService, errorChan chan error, logger *zap.Logger, db *database.Database) error {
	eg, ctx := errgroup.WithContext(ctx)

	if err := svc.Authenticate(ctx); err != nil {
		logger.Error("initial authentication failed", zap.Error(err))
		return err
	}
	info, err := svc.GetInfo(ctx)
	if err != nil {
		logger.Error("failed to identify device", zap.Error(err))
		return err
	}
	hw, err := svc.GetHardwareVersion(ctx)
	if err != nil {
		logger.Error("failed to read hardware version", zap.Error(err))
		return err
	}
	device := deviceFor(info, hw)
	logger.Info("bridging device",
		zap.String("id", device.ID),
		zap.String("hardware", string(hw)))

	g := gate.New()
	statePoller := poller.New(svc, g, cfg.Device)
	commandDispatcher := dispatcher.New(svc, statePoller, g, cfg.Device)

	if db != nil {
		if err := publisher.RegisterPublisher("postgres", db); err != nil {
			return err
		}
		eg.Go(func() error {
			return cronDbCleanup(ctx, db, errorChan)
		})
	}

	if cfg.Mqtt.Host != "" {
		opts := paho_mqtt.NewClientOptions().
			AddBroker(cfg.Mqtt.Host).
			SetUsername(cfg.Mqtt.Username).
			SetPassword(cfg.Mqtt.Password).
			SetClientID("nanokvm-bridge-" + device.ID).
			SetAutoReconnect(true)
		mqttSvc := mqtt.New(paho_mqtt.NewClient(opts), commandDispatcher, statePoller.Snapshot)
		if err := mqttSvc.Connect(); err != nil {
			return err
		}
		if err := publisher.RegisterPublisher("mqtt", mqttSvc); err != nil {
			return err
		}
	}

	registered := false
	statePoller.Subscribe(func(update model.Update) {
		pubCtx := contxt.NewContext(time.Second * 5)
		if update.Snapshot != nil && !registered {
			if err := publisher.RegisterDevice(device); err == nil {
				registered = true
			}
		}
		_ = publisher.PublishAvailability(pubCtx, device, update.Available)
		if update.Available && update.Snapshot != nil {
			if err := publisher.PublishSnapshot(pubCtx, device, update.Snapshot); err != nil {
				errorChan <- err
			}
		}
	})

	eg.Go(func() error {
		return statePoller.Start(ctx)
	})

	eg.Go(func() error {
		return commandDispatcher.Start(ctx)
	})

	eg.Go(func() error {
		return cronUpdateCheck(ctx, svc, g, statePoller, device, errorChan)
	})

	var srv *server.Server
	if db != nil {
		srv, err = server.New(commandDispatcher, statePoller, db, device, cfg.Server)
	} else {
		srv, err = server.New(commandDispatcher, statePoller, nil, device, cfg.Server)
	}
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewCollector(statePoller, commandDispatcher))

	httpSrv := &http.Server{
		Handler:      srv.Router(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		Addr:         cfg.Server.Address,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	eg.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		// handle any async errors from services
		for {
			select {
			case err := <-errorChan:
				if errors.Is(err, errCron) {
					logger.Error("cron error", zap.Error(err))
					return err
				}
				logger.Error("async error", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				statePoller.Stop()
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}

func deviceFor(info nanokvm.Info, hw model.HardwareVersion) *model.Device {
	mdns := nanokvm.NormalizeMDNS(info.MDNS)
	identifier := strings.ReplaceAll(slug.Make(strings.TrimSuffix(mdns, ".")), "-", "_")
	if identifier == "" {
		identifier = "nanokvm"
	}
	return &model.Device{
		ID:           identifier,
		Name:         "NanoKVM (" + strings.TrimSuffix(mdns, ".") + ")",
		MDNS:         mdns,
		Model:        "NanoKVM " + string(hw),
		Manufacturer: "Sipeed",
	}
}

var errCron = errors.New("cron error")

func cronDbCleanup(ctx context.Context, db *database.Database, errChan chan error) error {
	if err := db.Cleanup(ctx); err != nil {
		return err
	}

	c := cron.New()
	if _, err := c.AddFunc("0 3 * * *", func() {
		if err := db.Cleanup(context.Background()); err != nil {
			zap.L().Error("error cleaning up database", zap.Error(err))
			errChan <- errCron
			return
		}
		zap.L().Info("cleaned up state change history")
	}); err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// cronUpdateCheck asks the device daily whether a newer application is
// published and surfaces the answer as an entity.
func cronUpdateCheck(ctx context.Context, svc KVMService, g *gate.Gate, statePoller *poller.Poller, device *model.Device, errChan chan error) error {
	check := func() {
		snapshot := statePoller.Snapshot()
		if snapshot == nil {
			return
		}
		ctx := contxt.NewContext(time.Second * 10)
		g.Lock()
		latest, err := svc.GetLatestApplicationVersion(ctx)
		g.Unlock()
		if err != nil {
			zap.L().Warn("update check failed", zap.Error(err))
			return
		}
		value := "off"
		if latest != "" && latest != snapshot.ApplicationVersion {
			value = "on"
		}
		if err := publisher.PublishDatapoints(ctx, device, []publisher.Datapoint{
			{Name: "Update Available", Value: value},
		}); err != nil {
			errChan <- err
		}
	}

	c := cron.New()
	if _, err := c.AddFunc("0 6 * * *", check); err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}
