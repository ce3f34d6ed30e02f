package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"job-board/internal/alerts"
	"job-board/internal/api"
	"job-board/internal/application"
	"job-board/internal/auth"
	"job-board/internal/lifecycle"
	"job-board/internal/notifier"
	"job-board/internal/recommend"
	"job-board/internal/resume"
	"job-board/internal/savedjobs"
	"job-board/internal/search"
	"job-board/internal/storage"
	"job-board/internal/subscription"
)

// AppConfig 应用配置。
type AppConfig struct {
	Server       ServerConfig         `yaml:"server"`
	Database     DatabaseConfig       `yaml:"database"`
	Resume       ResumeConfig         `yaml:"resume"`
	Auth         auth.Config          `yaml:"auth"`
	Subscription subscription.Config  `yaml:"subscription"`
	Alerts       alerts.Config        `yaml:"alerts"`
	Email        notifier.EmailConfig `yaml:"email"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ResumeConfig struct {
	Dir string `yaml:"dir"`
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Printf("load config error: %v", err)
		return
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = "jobs.db"
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		log.Printf("init store error: %v", err)
		return
	}
	defer store.Close()

	resumeDir := cfg.Resume.Dir
	if resumeDir == "" {
		resumeDir = "resumes"
	}
	blobs, err := resume.NewDiskStore(resumeDir)
	if err != nil {
		log.Printf("init resume store error: %v", err)
		return
	}

	saved := savedjobs.NewService(store)
	searcher := search.NewService(store)
	recommender := recommend.NewService(store, saved)
	jobs := lifecycle.NewService(store, blobs)
	applications := application.NewService(store, blobs)
	subs := subscription.NewService(store, cfg.Subscription)
	dispatcher := alerts.NewDispatcher(store, store, buildNotifier(cfg.Email), cfg.Alerts)

	handler := api.NewHandler(api.Deps{
		Searcher:      searcher,
		Recommender:   recommender,
		Lifecycle:     jobs,
		Jobs:          store,
		Saved:         saved,
		Applications:  applications,
		Subscriptions: subs,
		Auth:          auth.NewResolver(cfg.Auth),
	})

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{Addr: addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := dispatcher.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("alert dispatcher stopped: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("server error: %v", err)
	}
}

func loadConfig() (AppConfig, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func buildNotifier(cfg notifier.EmailConfig) alerts.Notifier {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		log.Printf("email notifier disabled: missing host/port/from, falling back to log")
		return notifier.NewLogNotifier(nil)
	}
	return notifier.NewEmailNotifier(cfg, nil)
}
