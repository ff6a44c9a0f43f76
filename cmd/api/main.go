package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"triage-dashboard/internal/api"
	"triage-dashboard/internal/conf"
	"triage-dashboard/internal/database"
	"triage-dashboard/internal/repository"
	"triage-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// 1. Config
	cfg, err := conf.LoadConfig()
	if err != nil {
		logrus.Fatalf("Config error: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logrus.SetLevel(lvl)
	}
	if lvl := logrus.GetLevel(); lvl < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	repo, closeRepo := openRepository(ctx, cfg)
	defer closeRepo()

	// 3. Dependency Injection (依賴注入)
	// Repo -> Service -> Handler
	baseURL := cfg.Backend.BaseURL
	if baseURL == "" {
		baseURL, err = service.DeriveBase(cfg.Backend.Origin, cfg.Backend.Port)
		if err != nil {
			logrus.Fatalf("Backend address error: %v", err)
		}
	}
	logrus.Infof("評分後端: %s", baseURL)

	backend := service.NewBackendClient(baseURL, cfg.Backend.Timeout)
	poller := service.NewPoller(backend, cfg.Poller.Interval)
	notifier := service.NewNotifierService(repo, cfg.Notify.RatePerSecond, cfg.Notify.QueueSize)
	poller.Subscribe(notifier.ObserveAnalyses)

	dashboard := service.NewDashboardService(backend, poller, repo, notifier, cfg.Review.PersistDecisions)
	whois := service.NewWhoisService()

	handlers := api.Handlers{
		Analysis: api.NewAnalysisHandler(dashboard),
		Results:  api.NewResultsHandler(dashboard),
		Settings: api.NewSettingsHandler(repo, notifier),
		Tools:    api.NewToolHandler(whois),
	}
	if cfg.Auth.Enabled {
		auth := service.NewAuthService(repo, cfg.Auth.JWTSecret)
		if err := auth.InitAdmin(ctx, cfg.Auth.AdminUser, cfg.Auth.AdminPassword); err != nil {
			logrus.Fatalf("Init admin error: %v", err)
		}
		handlers.Auth = api.NewAuthHandler(auth)
		handlers.JWTSecret = []byte(cfg.Auth.JWTSecret)
	}

	// 4. Gin Router Setup
	r := api.NewRouter(handlers)
	dashboard.Start()

	// 5. Start Server
	srv := &http.Server{Addr: cfg.Server.Port, Handler: r}
	go func() {
		logrus.Infof("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server shutdown error: %v", err)
	}
	dashboard.Stop()
	notifier.Stop()
}

// openRepository 依 storage.driver 選擇記憶體或 MongoDB
func openRepository(ctx context.Context, cfg *conf.Config) (repository.ReviewRepository, func()) {
	if cfg.Storage.Driver != "mongo" {
		if cfg.Review.PersistDecisions {
			logrus.Warn("review.persist_decisions 已開啟但使用記憶體儲存，重新啟動後紀錄會消失")
		}
		return repository.NewMemoryRepo(), func() {}
	}

	client, err := database.Connect(ctx, cfg.MongoDB)
	if err != nil {
		logrus.Fatalf("Database error: %v", err)
	}
	db := client.Database(cfg.MongoDB.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logrus.Warnf("建立索引失敗: %v", err)
	}
	return repository.NewMongoReviewRepo(db), func() {
		_ = client.Disconnect(context.Background())
	}
}

