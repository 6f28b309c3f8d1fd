package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmaged/voxline/internal/alignment"
	"github.com/hmaged/voxline/internal/assistant"
	"github.com/hmaged/voxline/internal/bridge"
	"github.com/hmaged/voxline/internal/bus"
	"github.com/hmaged/voxline/internal/config"
	"github.com/hmaged/voxline/internal/logging"
	"github.com/hmaged/voxline/internal/puppet"
	"github.com/hmaged/voxline/internal/server"
	"github.com/hmaged/voxline/internal/storage"
	"github.com/hmaged/voxline/internal/timing"
	"github.com/hmaged/voxline/internal/transcript"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "voxline:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	listenAddr := flag.String("listen", cfg.Server.ListenAddr, "HTTP listen address")
	assistantURL := flag.String("assistant", cfg.Assistant.URL, "assistant stream WebSocket URL")
	modelPath := flag.String("model", cfg.Puppet.ModelPath, "puppet glTF model path")
	flag.Parse()

	cfg.Server.ListenAddr = *listenAddr
	cfg.Assistant.URL = *assistantURL
	cfg.Puppet.ModelPath = *modelPath

	logger, err := logging.New(logging.Config{
		LogDir:  cfg.Logging.Dir,
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Close() }()
	log := logger.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	clock := timing.RealClock{}
	timers := timing.NewQueue(clock)
	defer timers.Close()

	eventBus := bus.NewEventBus()

	hub := server.NewHub(logger.Zerolog())
	bridge.NewRelay(hub, logger.Zerolog()).Bind(eventBus)

	controls := server.ControlHooks{}

	var puppetCtl *puppet.Controller
	if cfg.Puppet.Enabled {
		puppetCtl = puppet.NewController(clock, timers, logger.Zerolog())
		bridge.WirePuppet(eventBus, puppetCtl)

		if cfg.Puppet.ModelPath != "" {
			model, err := puppet.LoadModel(cfg.Puppet.ModelPath, logger.Zerolog())
			if err != nil {
				log.Warn().Err(err).Str("path", cfg.Puppet.ModelPath).Msg("puppet model unusable, driving shapes only")
			} else {
				puppetCtl.AttachModel(model)
				if cfg.Puppet.WatchModel {
					if err := model.Watch(ctx); err != nil {
						log.Warn().Err(err).Msg("model watch unavailable")
					}
				}
			}
		}

		controls.SetViseme = puppetCtl.Set
		controls.CurrentViseme = puppetCtl.Current
		controls.PlayTimeline = puppetCtl.Play
	}

	var alignmentSink transcript.AlignmentSink
	if cfg.Alignment.Enabled {
		alignmentLogger, err := alignment.NewLogger(cfg.Alignment.Dir, logger.Zerolog())
		if err != nil {
			return fmt.Errorf("init alignment logging: %w", err)
		}
		alignmentSink = alignmentLogger
	}

	scheduler := transcript.NewScheduler(clock, timers, logger.Zerolog(), transcript.SchedulerOptions{
		Store:     store,
		Hub:       bridge.NewBroadcaster(eventBus),
		Puppet:    puppetDriver(puppetCtl),
		Alignment: alignmentSink,
	})

	client := assistant.NewClient(assistant.Config{
		URL:            cfg.Assistant.URL,
		ReconnectDelay: cfg.Assistant.ReconnectDelay,
		MaxReconnects:  cfg.Assistant.MaxReconnects,
	}, scheduler, logger.Zerolog())
	client.OnStatus(func(connected bool) {
		bridge.PublishAssistantStatus(eventBus, connected)
	})

	controls.StartAssistant = func() error { return client.Start(ctx) }
	controls.StopAssistant = client.Stop
	controls.AssistantRunning = client.IsRunning
	controls.AssistantConnected = client.IsConnected

	if cfg.Assistant.AutoStart {
		if err := client.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("assistant autostart failed")
		}
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: server.Handler(hub, scheduler, store, controls, logger.Zerolog()),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.ListenAddr).Msg("voxline listening")
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	client.Stop()
	timers.Sync()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}

	return nil
}

// puppetDriver adapts a possibly-nil controller to the scheduler's
// optional collaborator slot. A typed nil inside the interface would
// defeat the scheduler's nil checks.
func puppetDriver(ctl *puppet.Controller) transcript.VisemeDriver {
	if ctl == nil {
		return nil
	}
	return ctl
}
