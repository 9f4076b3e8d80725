package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getstubd/stubd/pkg/admin"
	"github.com/getstubd/stubd/pkg/config"
	"github.com/getstubd/stubd/pkg/content"
	"github.com/getstubd/stubd/pkg/engine"
	"github.com/getstubd/stubd/pkg/journal"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/proxy"
	"github.com/getstubd/stubd/pkg/recording"
	"github.com/getstubd/stubd/pkg/stub"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		configPath  string
		port        int
		adminPort   int
		stubDir     string
		watch       bool
		proxyTarget string
		record      bool
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stub and admin servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				cfg, err = config.Load(configPath)
				if err != nil {
					return err
				}
			}

			// Flags override the file.
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("admin-port") {
				cfg.Admin.Port = adminPort
			}
			if cmd.Flags().Changed("stub-dir") {
				cfg.Stubs.Dir = stubDir
			}
			if cmd.Flags().Changed("watch") {
				cfg.Stubs.Watch = watch
			}
			if cmd.Flags().Changed("proxy-target") {
				cfg.Proxy.Target = proxyTarget
			}
			if cmd.Flags().Changed("record") {
				cfg.Proxy.Record = record
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML or JSON)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "stub server port")
	cmd.Flags().IntVar(&adminPort, "admin-port", 8081, "admin API port")
	cmd.Flags().StringVar(&stubDir, "stub-dir", "", "directory of stub mapping files")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload stub files on change")
	cmd.Flags().StringVar(&proxyTarget, "proxy-target", "", "forward unmatched requests to this base URL")
	cmd.Flags().BoolVar(&record, "record", false, "learn stub mappings from proxied traffic")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runServe(cfg config.Config) error {
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: logging.ParseFormat(cfg.Logging.Format),
	})

	opts := engine.Options{
		Journal:      journal.NewMemory(cfg.Journal.MaxEntries),
		Logger:       log,
		TieBreak:     engine.TieBreak(cfg.Server.TieBreak),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}

	if cfg.Content.Dir != "" {
		store, err := content.NewFileStore(cfg.Content.Dir)
		if err != nil {
			return fmt.Errorf("content store: %w", err)
		}
		opts.Content = store
	}

	var recorder *recording.Recorder
	if cfg.Proxy.Target != "" {
		fwd, err := proxy.NewForwarder(cfg.Proxy.Target, proxy.WithLogger(log))
		if err != nil {
			return fmt.Errorf("proxy forwarder: %w", err)
		}
		opts.UnmatchedMode = engine.UnmatchedProxy
		opts.Forwarder = fwd

		if cfg.Proxy.Record {
			recorder = recording.NewRecorder(cfg.Proxy.QueueSize, 0, log)
			recorder.Start()
			defer recorder.Stop()
			opts.Sink = func(ex *proxy.Exchange) { recorder.Offer(ex) }
		}
	}

	eng := engine.New(opts)

	syncer := newStubSync(eng.Repository(), log)
	if cfg.Stubs.Dir != "" {
		loader := config.NewDirLoader(cfg.Stubs.Dir, cfg.Stubs.Globs)
		if err := syncer.reload(loader); err != nil {
			return err
		}
	}

	srv := engine.NewServer(engine.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TLSPort:      cfg.Server.TLSPort,
		CertFile:     cfg.Server.CertFile,
		KeyFile:      cfg.Server.KeyFile,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, eng.Handler(), log)
	if err := srv.Start(); err != nil {
		return err
	}

	adminOpts := []admin.Option{admin.WithLogger(log)}
	if recorder != nil {
		adminOpts = append(adminOpts, admin.WithRecorder(recorder))
	}
	adm := admin.NewServer(admin.Config{Host: cfg.Admin.Host, Port: cfg.Admin.Port}, eng, adminOpts...)
	if err := adm.Start(); err != nil {
		shutdown(srv.Stop, log)
		return err
	}

	var watcher *config.Watcher
	if cfg.Stubs.Dir != "" && cfg.Stubs.Watch {
		var err error
		watcher, err = config.NewWatcher(cfg.Stubs.Dir, log)
		if err != nil {
			log.Warn("stub file watching disabled", "error", err)
		} else {
			defer watcher.Close()
			loader := config.NewDirLoader(cfg.Stubs.Dir, cfg.Stubs.Globs)
			go func() {
				for range watcher.Events() {
					if err := syncer.reload(loader); err != nil {
						log.Error("stub reload failed", "error", err)
					}
				}
			}()
			log.Info("watching stub directory", "dir", cfg.Stubs.Dir)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())

	shutdown(adm.Stop, log)
	shutdown(srv.Stop, log)
	return nil
}

func shutdown(stop func(context.Context) error, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}

// stubSync keeps the repository in step with the stub directory. File
// mappings are upserted by ID; mappings that vanish from disk are removed.
type stubSync struct {
	repo   *engine.Repository
	log    *slog.Logger
	loaded map[string]bool
}

func newStubSync(repo *engine.Repository, log *slog.Logger) *stubSync {
	return &stubSync{repo: repo, log: log, loaded: make(map[string]bool)}
}

func (s *stubSync) reload(loader *config.DirLoader) error {
	mappings, fileErrs, err := loader.Load()
	if err != nil {
		return err
	}
	for _, fe := range fileErrs {
		s.log.Warn("skipping stub file", "file", fe.Path, "error", fe.Err)
	}

	current := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		current[m.ID] = true
		if err := s.upsert(m); err != nil {
			s.log.Warn("skipping stub mapping", "id", m.ID, "error", err)
		}
	}

	for id := range s.loaded {
		if !current[id] {
			s.repo.Remove(id)
		}
	}
	s.loaded = current

	s.log.Info("stub mappings loaded", "count", len(mappings), "failedFiles", len(fileErrs))
	return nil
}

func (s *stubSync) upsert(m *stub.StubMapping) error {
	if s.loaded[m.ID] {
		_, err := s.repo.Update(m)
		return err
	}
	_, err := s.repo.Register(m)
	return err
}
