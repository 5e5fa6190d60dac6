// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/atelier/internal/application"
	"github.com/hitoshi/atelier/internal/auth"
	"github.com/hitoshi/atelier/internal/config"
	"github.com/hitoshi/atelier/internal/database"
	"github.com/hitoshi/atelier/internal/handler"
	"github.com/hitoshi/atelier/internal/invite"
	"github.com/hitoshi/atelier/internal/logger"
	"github.com/hitoshi/atelier/internal/metrics"
	"github.com/hitoshi/atelier/internal/middleware"
	"github.com/hitoshi/atelier/internal/portfolio"
	"github.com/hitoshi/atelier/internal/profile"
	"github.com/hitoshi/atelier/internal/project"
	"github.com/hitoshi/atelier/internal/repository"
	"github.com/hitoshi/atelier/internal/security"
	"github.com/hitoshi/atelier/internal/suggest"
	"github.com/hitoshi/atelier/internal/task"
	"github.com/hitoshi/atelier/internal/user"
	"github.com/hitoshi/atelier/internal/worker/artjob"
	"github.com/hitoshi/atelier/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envファイル（存在する場合）と環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envファイルの読み込み（存在しない場合は無視）
	_ = godotenv.Load()

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	projectRepo := repository.NewPostgresProjectRepo(db)
	memberRepo := repository.NewPostgresMemberRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)
	expenseRepo := repository.NewPostgresExpenseRepo(db)
	portfolioRepo := repository.NewPostgresPortfolioRepo(db)
	inviteRepo := repository.NewPostgresInviteRepo(db)
	appRepo := repository.NewPostgresApplicationRepo(db)
	artJobRepo := repository.NewPostgresArtJobRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. ドメインサービスの初期化
	authService := auth.NewService(
		userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	profileFetcher := profile.NewFetcher(userRepo)

	userService := user.NewService(userRepo, sessionRepo, portfolioRepo, appRepo, sanitizer)
	userService.ProfileCache = profileFetcher
	projectService := project.NewService(projectRepo, memberRepo, userRepo, sanitizer)
	budgetService := project.NewBudgetService(projectRepo, memberRepo, expenseRepo)
	taskService := task.NewService(taskRepo, projectRepo, memberRepo)

	classifier := portfolio.NewMediaClassifierWithProbe(ssrfGuard, cfg.MediaProbeTimeout, cfg.MediaProbeMaxSize)
	portfolioService := portfolio.NewService(portfolioRepo, classifier, ssrfGuard, sanitizer)

	inviteService := invite.NewService(inviteRepo, projectRepo, memberRepo, userRepo)
	applicationService := application.NewService(appRepo, projectRepo, memberRepo, userRepo, sanitizer)

	chatter := suggest.NewOllamaClient(suggest.OllamaConfig{
		BaseURL: cfg.SuggestBaseURL,
		Model:   cfg.SuggestModel,
		Token:   cfg.SuggestToken,
		Timeout: cfg.SuggestTimeout,
	})
	suggestService := suggest.NewService(chatter, projectRepo, memberRepo, artJobRepo, sanitizer)

	// 5. メトリクスの初期化
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitSuggest),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger: slog.Default(),

		AuthService:    authService,
		ProfileFetcher: profileFetcher,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:     cfg.CookieDomain,
			CookieSecure:     cfg.CookieSecure,
			SessionMaxAge:    cfg.SessionMaxAge,
			HydrationTimeout: cfg.HydrationTimeout,
		},

		UserService:      userService,
		PortfolioService: portfolioService,

		ProjectService: projectService,
		BudgetService:  budgetService,
		TaskService:    taskService,

		InviteService:      inviteService,
		ApplicationService: applicationService,

		SuggestService: suggestService,
		SuggestMetrics: collector,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、コンセプトアート生成スケジューラとクリーンアップジョブを起動する。
// /metricsエンドポイントを別ポートで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	sessionRepo := repository.NewPostgresSessionRepo(db)
	projectRepo := repository.NewPostgresProjectRepo(db)
	inviteRepo := repository.NewPostgresInviteRepo(db)
	artJobRepo := repository.NewPostgresArtJobRepo(db)

	// 3. メトリクスの初期化
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	// 4. 画像生成ランナーの初期化
	generator := artjob.NewImageAPIClient(artjob.ImageAPIConfig{
		BaseURL: cfg.ImageBaseURL,
		Model:   cfg.ImageModel,
		Token:   cfg.ImageToken,
		Timeout: cfg.ImageTimeout,
	})
	runner := artjob.NewRunner(artJobRepo, projectRepo, generator, slog.Default())
	runner.Metrics = collector
	runner.MaxAttempts = cfg.ArtJobMaxAttempts

	// 5. スケジューラの初期化
	scheduler := artjob.NewScheduler(
		artJobRepo, runner, slog.Default(), cfg.ArtJobMaxConcurrent,
	)

	// 6. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, inviteRepo, artJobRepo, slog.Default())
	cleanupJob.Metrics = collector

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("job_interval", cfg.ArtJobInterval),
		slog.Int("max_concurrent", cfg.ArtJobMaxConcurrent),
	)

	// メトリクスサーバーをバックグラウンドで起動
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(prometheus.DefaultGatherer),
	}
	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// アートジョブスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.ArtJobInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
