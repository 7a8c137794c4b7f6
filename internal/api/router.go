package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/app"
	"github.com/charlesng35/picketer/internal/auth"
	"github.com/charlesng35/picketer/internal/cache"
	"github.com/charlesng35/picketer/internal/handlers"
	"github.com/charlesng35/picketer/internal/middleware"
	"github.com/charlesng35/picketer/internal/security"
	"github.com/charlesng35/picketer/internal/services"
	"github.com/charlesng35/picketer/internal/storage"
	"github.com/charlesng35/picketer/internal/tasks"
	"github.com/charlesng35/picketer/pkg/crypto"
	"github.com/charlesng35/picketer/pkg/mail"
	"github.com/charlesng35/picketer/pkg/push"
)

// Dependencies are the shared resources the HTTP layer is built from.
// Mailer, Tasks, RateStore and Redis are optional.
type Dependencies struct {
	DB            *gorm.DB
	JWT           *auth.JWTService
	Hasher        *crypto.PasswordHasher
	Mailer        mail.Mailer
	Storage       storage.Storage
	Push          push.Sender
	PushPublicKey string
	Tasks         tasks.Dispatcher
	RateStore     cache.Store
	Redis         *cache.RedisStore
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return errors.New("api: database handle must be provided")
	case d.JWT == nil:
		return errors.New("api: jwt service must be provided")
	case d.Hasher == nil:
		return errors.New("api: password hasher must be provided")
	case d.Storage == nil:
		return errors.New("api: storage must be provided")
	case d.Push == nil:
		return errors.New("api: push sender must be provided")
	}
	return nil
}

type serviceSet struct {
	audit         *services.AuditService
	users         *services.UserService
	invitations   *services.InvitationService
	posts         *services.PostService
	reports       *services.ReportService
	subscriptions *services.SubscriptionService
}

func buildServices(cfg *app.Config, deps Dependencies) (*serviceSet, error) {
	audit, err := services.NewAuditService(deps.DB)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(deps.DB, deps.Hasher, audit)
	if err != nil {
		return nil, err
	}
	invitations, err := services.NewInvitationService(deps.DB, deps.Hasher, deps.JWT,
		services.WithInvitationLinkBase(cfg.Invitations.LinkBaseURL),
		services.WithInvitationTTL(cfg.Invitations.TTL),
		services.WithInvitationMailer(deps.Mailer, deps.Tasks),
		services.WithInvitationAudit(audit),
	)
	if err != nil {
		return nil, err
	}
	subscriptions, err := services.NewSubscriptionService(deps.DB, deps.Push, deps.Tasks)
	if err != nil {
		return nil, err
	}
	posts, err := services.NewPostService(deps.DB, subscriptions)
	if err != nil {
		return nil, err
	}
	reports, err := services.NewReportService(deps.DB, deps.Storage, deps.Mailer, subscriptions, audit)
	if err != nil {
		return nil, err
	}
	return &serviceSet{
		audit:         audit,
		users:         users,
		invitations:   invitations,
		posts:         posts,
		reports:       reports,
		subscriptions: subscriptions,
	}, nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if cfg == nil {
		return nil, errors.New("api: config must be provided")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.RateStore == nil {
		deps.RateStore = cache.NewMemoryStore()
	}

	svc, err := buildServices(cfg, deps)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics("/health", "/api/health", metricsEndpoint(cfg)))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins))
	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, cfg, deps)
	registerMetricsRoutes(r, cfg)
	registerPublicFiles(r, deps.Storage)

	limit := cfg.Server.RateLimit
	rateLimited := middleware.RateLimit(deps.RateStore, limit.Requests, windowOrDefault(limit.Window))
	requireAuth := middleware.Auth(deps.JWT)
	adminOnly := middleware.RequireRole(svc.users, "admin")

	api := r.Group("/api")
	registerSetupRoutes(api, handlers.NewSetupHandler(svc.users, deps.JWT), rateLimited)
	registerAuthRoutes(api, handlers.NewAuthHandler(svc.users, deps.JWT), requireAuth, rateLimited)
	registerInviteRoutes(api, handlers.NewInviteHandler(svc.invitations), requireAuth, adminOnly, rateLimited)
	registerUserRoutes(api, handlers.NewUserHandler(svc.users), requireAuth, adminOnly)
	registerPostRoutes(api, handlers.NewPostHandler(svc.posts, svc.users), requireAuth)
	registerReportRoutes(api, handlers.NewReportHandler(svc.reports, cfg.Server.MaxUploadBytes), requireAuth, adminOnly)
	registerSubscriptionRoutes(api, handlers.NewSubscriptionHandler(svc.subscriptions, deps.PushPublicKey), requireAuth)
	registerAuditRoutes(api, handlers.NewAuditHandler(svc.audit), requireAuth, adminOnly)
	registerSecurityRoutes(api, handlers.NewSecurityHandler(security.NewPostureService(deps.DB, deps.JWT, cfg)), requireAuth, adminOnly)

	return r, nil
}

func registerPublicFiles(r *gin.Engine, store storage.Storage) {
	local, ok := store.(*storage.LocalStorage)
	if !ok {
		return
	}
	prefix := strings.TrimRight(local.URLPrefix(), "/")
	if prefix == "" {
		return
	}
	r.Static(prefix, local.Dir())
}

func windowOrDefault(window time.Duration) time.Duration {
	if window <= 0 {
		return time.Minute
	}
	return window
}
