package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/atelier/internal/auth"
	"github.com/hitoshi/atelier/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     Pinger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 認証
	AuthService    AuthServiceInterface
	ProfileFetcher auth.ProfileFetcher
	AuthConfig     AuthHandlerConfig

	// ユーザー・ポートフォリオ
	UserService      UserServiceInterface
	PortfolioService PortfolioServiceInterface

	// プロジェクト
	ProjectService ProjectServiceInterface
	BudgetService  BudgetServiceInterface
	TaskService    TaskServiceInterface

	// 招待・応募
	InviteService      InviteServiceInterface
	ApplicationService ApplicationServiceInterface

	// AI提案
	SuggestService SuggestServiceInterface
	SuggestMetrics SuggestionRecorder
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SecurityHeaders → Logging → Recovery
//	→ SessionMiddleware → RateLimit(General) → CSRF
//
// 認証ルート（/auth/*）とヘルスチェックはセッションミドルウェアの外に配置する。
// AI提案ルートにはGeneralより厳しい専用レート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.SessionFinder, deps.ProfileFetcher, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	portfolioHandler := NewPortfolioHandler(deps.PortfolioService)
	projectHandler := NewProjectHandler(deps.ProjectService)
	expenseHandler := NewExpenseHandler(deps.BudgetService)
	taskHandler := NewTaskHandler(deps.TaskService)
	inviteHandler := NewInviteHandler(deps.InviteService)
	applicationHandler := NewApplicationHandler(deps.ApplicationService)
	suggestHandler := NewSuggestHandler(deps.SuggestService)
	suggestHandler.Metrics = deps.SuggestMetrics
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)

	r.Route("/auth", func(r chi.Router) {
		// ログイン済みユーザーはサインアップ・ログインに入れない
		anonGate := middleware.NewAnonGateMiddleware(deps.SessionFinder, "/")
		r.With(anonGate).Post("/signup", authHandler.Signup)
		r.With(anonGate).Post("/login", authHandler.Login)

		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)
		r.Method(http.MethodGet, "/csrf", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	})

	// 招待メールのリンク（ブラウザ遷移）。未認証の場合はログインへリダイレクトする
	authGate := middleware.NewAuthGateMiddleware(deps.SessionFinder, "/login")
	r.With(authGate).Get("/invites/{token}",
		NewInviteLandingHandler(deps.InviteService, deps.CORSAllowedOrigin))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// ユーザー管理・才能検索
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", userHandler.SearchTalent)
			r.Get("/me", userHandler.Me)
			r.Patch("/me", userHandler.UpdateMe)
			r.Delete("/me", userHandler.Withdraw)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.GetProfile)
				r.Get("/portfolio", portfolioHandler.ListByUser)
			})
		})

		// ポートフォリオ管理
		r.Route("/api/portfolio", func(r chi.Router) {
			r.Get("/", portfolioHandler.ListMine)
			r.Post("/", portfolioHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", portfolioHandler.Get)
				r.Patch("/", portfolioHandler.Update)
				r.Delete("/", portfolioHandler.Delete)
			})
		})

		// プロジェクト管理
		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", projectHandler.ListMine)
			r.Post("/", projectHandler.Create)
			r.Get("/public", projectHandler.ListPublic)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.Get)
				r.Patch("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)

				// チームメンバー
				r.Get("/members", projectHandler.ListMembers)
				r.Post("/members", projectHandler.AddMember)

				// かんばんボード
				r.Get("/tasks", taskHandler.List)
				r.Post("/tasks", taskHandler.Create)
				r.Post("/tasks/batch", taskHandler.CreateBatch)

				// 予算・経費
				r.Get("/expenses", expenseHandler.ListExpenses)
				r.Post("/expenses", expenseHandler.AddExpense)

				// 招待・応募
				r.Post("/invites", inviteHandler.Create)
				r.Get("/applications", applicationHandler.ListForProject)
				r.Post("/applications", applicationHandler.Apply)

				// AI提案（専用レート制限を追加）
				r.Group(func(r chi.Router) {
					r.Use(deps.RateLimiter.SuggestMiddleware())
					r.Post("/suggest/tasks", suggestHandler.SuggestTasks)
					r.Post("/suggest/collaborators", suggestHandler.SuggestCollaborators)
				})
			})
		})

		// タスク個別操作
		r.Route("/api/tasks/{id}", func(r chi.Router) {
			r.Patch("/", taskHandler.Update)
			r.Delete("/", taskHandler.Delete)
		})

		// 招待の受信側操作
		r.Route("/api/invites", func(r chi.Router) {
			r.Get("/", inviteHandler.ListMine)
			r.Get("/resolve", inviteHandler.ResolveToken)
			r.Post("/{id}/accept", inviteHandler.Accept)
			r.Post("/{id}/decline", inviteHandler.Decline)
		})

		// 応募の審査操作
		r.Route("/api/applications/{id}", func(r chi.Router) {
			r.Post("/approve", applicationHandler.Approve)
			r.Post("/decline", applicationHandler.Decline)
		})

		// 企画提案（プロジェクト非依存、専用レート制限を追加）
		r.With(deps.RateLimiter.SuggestMiddleware()).Post("/api/suggest/concept", suggestHandler.SuggestConcept)
	})

	return r
}
