package security

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/app"
	"github.com/charlesng35/picketer/internal/auth"
	"github.com/charlesng35/picketer/internal/models"
)

// CheckStatus captures the outcome of a posture check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const maxRecommendedTokenTTL = 30 * 24 * time.Hour

// Check contains the result of a single verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Failed reports whether any check failed.
func (r Result) Failed() bool {
	return r.Summary[string(StatusFail)] > 0
}

// PostureService evaluates deployment settings that weaken account security.
type PostureService struct {
	db  *gorm.DB
	jwt *auth.JWTService
	cfg *app.Config
	now func() time.Time
}

// NewPostureService constructs the service. Missing dependencies degrade the
// checks that need them to warnings.
func NewPostureService(db *gorm.DB, jwt *auth.JWTService, cfg *app.Config) *PostureService {
	return &PostureService{
		db:  db,
		jwt: jwt,
		cfg: cfg,
		now: time.Now,
	}
}

// WithClock overrides the clock used in results.
func (s *PostureService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes every check.
func (s *PostureService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkAdminPresent(ctx),
		s.checkJWTSecret(),
		s.checkTokenTTL(),
		s.checkCORS(),
		s.checkPush(),
		s.checkEmail(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (s *PostureService) checkAdminPresent(ctx context.Context) Check {
	const id = "admin_present"
	if s.db == nil {
		return Check{ID: id, Status: StatusWarn, Message: "Database unavailable; cannot count administrators."}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return Check{ID: id, Status: StatusWarn, Message: fmt.Sprintf("Could not count administrators: %v", err)}
	}
	if count == 0 {
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "No administrator account exists.",
			Remediation: "Complete first-run setup through POST /api/setup/initialize.",
		}
	}
	return Check{ID: id, Status: StatusPass, Message: "Administrator account present.", Details: map[string]any{"count": count}}
}

func (s *PostureService) checkJWTSecret() Check {
	const id = "jwt_secret_strength"
	if s.jwt == nil {
		return Check{ID: id, Status: StatusWarn, Message: "Token service not initialised."}
	}

	length := s.jwt.SecretLength()
	switch {
	case length < 32:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     fmt.Sprintf("Token signing secret is too short (%d bytes).", length),
			Remediation: "Unset PICKETER_AUTH_JWT_SECRET to use a generated secret, or supply 32+ random bytes.",
		}
	case length < 48:
		return Check{
			ID:      id,
			Status:  StatusWarn,
			Message: fmt.Sprintf("Token signing secret is %d bytes; 48 or more is recommended.", length),
			Details: map[string]any{"length": length},
		}
	default:
		return Check{ID: id, Status: StatusPass, Message: fmt.Sprintf("Token signing secret is %d bytes.", length), Details: map[string]any{"length": length}}
	}
}

func (s *PostureService) checkTokenTTL() Check {
	const id = "token_ttl"
	if s.jwt == nil {
		return Check{ID: id, Status: StatusWarn, Message: "Token service not initialised."}
	}
	ttl := s.jwt.TTL()
	if ttl > maxRecommendedTokenTTL {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Session tokens live for %s, longer than %s.", ttl, maxRecommendedTokenTTL),
			Remediation: "Lower auth.jwt.access_token_ttl; tokens cannot be revoked before expiry.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}
	return Check{ID: id, Status: StatusPass, Message: fmt.Sprintf("Session tokens live for %s.", ttl), Details: map[string]any{"ttl": ttl.String()}}
}

func (s *PostureService) checkCORS() Check {
	const id = "cors_origins"
	if s.cfg == nil {
		return Check{ID: id, Status: StatusWarn, Message: "Configuration not loaded."}
	}
	origins := s.cfg.Server.CORS.AllowedOrigins
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Any origin may call the API from a browser.",
			Remediation: "List the web client origins in server.cors.allowed_origins.",
		}
	}
	return Check{ID: id, Status: StatusPass, Message: "Browser origins are restricted.", Details: map[string]any{"origins": origins}}
}

func (s *PostureService) checkPush() Check {
	const id = "push_configured"
	if s.cfg == nil {
		return Check{ID: id, Status: StatusWarn, Message: "Configuration not loaded."}
	}
	if strings.TrimSpace(s.cfg.Push.VAPIDPrivateKey) == "" || strings.TrimSpace(s.cfg.Push.VAPIDPublicKey) == "" {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Web push keys are missing; notifications are disabled.",
			Remediation: "Unset push.vapid_private_key to generate a key pair on start-up.",
		}
	}
	return Check{ID: id, Status: StatusPass, Message: "Web push keys configured."}
}

func (s *PostureService) checkEmail() Check {
	const id = "email_delivery"
	if s.cfg == nil {
		return Check{ID: id, Status: StatusWarn, Message: "Configuration not loaded."}
	}
	driver := strings.ToLower(strings.TrimSpace(s.cfg.Email.Driver))
	if driver == "" || driver == "none" {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Email delivery is disabled; invitations and report emails cannot be sent.",
			Remediation: "Set email.driver to smtp or sendgrid.",
		}
	}
	return Check{ID: id, Status: StatusPass, Message: fmt.Sprintf("Email is delivered through %s.", driver)}
}
