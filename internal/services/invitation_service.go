package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/models"
	"github.com/charlesng35/picketer/internal/tasks"
	"github.com/charlesng35/picketer/pkg/crypto"
	apperrors "github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/logger"
	"github.com/charlesng35/picketer/pkg/mail"
	"github.com/charlesng35/picketer/pkg/metrics"
)

const invitationTokenBytes = 32

// ErrRegisteredWithoutSession reports that registration committed but no
// session token could be signed. The account is usable via normal login.
var ErrRegisteredWithoutSession = apperrors.ErrInternalServer.WithMessage("Account created; sign in with your email and password")

// Invitation list filters. Expired is derived from pending rows past their expiry.
const (
	InvitationFilterPending  = "pending"
	InvitationFilterConsumed = "consumed"
	InvitationFilterExpired  = "expired"
)

// TokenIssuer signs session tokens for freshly registered accounts.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Issuer identifies the account handing out an invitation.
type Issuer struct {
	ID   string
	Role string
}

// InvitationRef is the issuer facing view of an invitation. It never carries
// the raw token.
type InvitationRef struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	InvitedBy string    `json:"invited_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegistrationInput holds the fields a recipient submits when redeeming.
type RegistrationInput struct {
	Name       string `json:"name" validate:"required"`
	Surname    string `json:"surname" validate:"required"`
	Patronymic string `json:"patronymic" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
}

// RedeemResult is returned after a successful registration.
type RedeemResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type issueInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,role"`
}

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationLinkBase configures the URL the raw token is appended to.
func WithInvitationLinkBase(url string) InvitationOption {
	return func(s *InvitationService) {
		s.linkBase = strings.TrimRight(strings.TrimSpace(url), "/")
	}
}

// WithInvitationTTL overrides the invitation lifetime.
func WithInvitationTTL(d time.Duration) InvitationOption {
	return func(s *InvitationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithInvitationClock injects a custom clock primarily for testing.
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithInvitationMailer enables delivery of invitation links. Messages are sent
// on dispatcher after the invitation has been stored.
func WithInvitationMailer(mailer mail.Mailer, dispatcher tasks.Dispatcher) InvitationOption {
	return func(s *InvitationService) {
		s.mailer = mailer
		if dispatcher != nil {
			s.tasks = dispatcher
		}
	}
}

// WithInvitationAudit records invitation lifecycle events.
func WithInvitationAudit(audit *AuditService) InvitationOption {
	return func(s *InvitationService) {
		s.audit = audit
	}
}

// InvitationService issues single-use invitations and turns them into accounts.
type InvitationService struct {
	db       *gorm.DB
	hasher   *crypto.PasswordHasher
	tokens   TokenIssuer
	mailer   mail.Mailer
	tasks    tasks.Dispatcher
	audit    *AuditService
	linkBase string
	ttl      time.Duration
	now      func() time.Time
}

// NewInvitationService constructs an InvitationService with the provided dependencies.
func NewInvitationService(db *gorm.DB, hasher *crypto.PasswordHasher, tokens TokenIssuer, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("invitation service: token issuer is required")
	}
	if hasher == nil {
		hasher = crypto.NewPasswordHasher(crypto.DefaultBcryptCost)
	}

	svc := &InvitationService{
		db:     db,
		hasher: hasher,
		tokens: tokens,
		tasks:  tasks.Inline{},
		ttl:    models.InvitationTTL,
		now:    utcNow,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue creates an invitation granting role to email. Only administrators may
// issue invitations and never for a role above their own.
func (s *InvitationService) Issue(ctx context.Context, issuer Issuer, email, role string) (*InvitationRef, error) {
	ctx = ensureContext(ctx)

	if issuer.ID == "" || issuer.Role != models.RoleAdmin {
		metrics.Invitations.WithLabelValues("issue", "forbidden").Inc()
		return nil, apperrors.ErrForbidden.WithMessage("Only administrators can issue invitations")
	}

	input := issueInput{Email: models.NormalizeEmail(email), Role: strings.TrimSpace(role)}
	if err := validate(input); err != nil {
		metrics.Invitations.WithLabelValues("issue", "invalid").Inc()
		return nil, err
	}
	if !models.CanGrant(issuer.Role, input.Role) {
		metrics.Invitations.WithLabelValues("issue", "forbidden").Inc()
		return nil, apperrors.ErrForbidden.WithMessage("Cannot grant a role above your own")
	}

	rawToken, err := crypto.GenerateToken(invitationTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("invitation service: generate token: %w", err)
	}

	now := s.now()
	invitation := models.Invitation{
		BaseModel: models.BaseModel{CreatedAt: now},
		TokenHash: crypto.HashToken(rawToken),
		Email:     input.Email,
		Role:      input.Role,
		InvitedBy: issuer.ID,
		Status:    models.InvitationPending,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&invitation).Error; err != nil {
		return nil, fmt.Errorf("invitation service: create invitation: %w", err)
	}

	metrics.Invitations.WithLabelValues("issue", "ok").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &issuer.ID,
		Action:   "invitation.issue",
		Resource: invitation.ID,
		Result:   AuditSuccess,
		Metadata: map[string]any{"email": invitation.Email, "role": invitation.Role},
	})

	s.sendLink(invitation.Email, invitation.Role, rawToken)

	return refOf(&invitation, now), nil
}

// Redeem registers a new account from a pending invitation and returns a
// session token for it. The invitation is consumed in the same transaction
// that creates the account, so a token yields at most one account.
func (s *InvitationService) Redeem(ctx context.Context, token string, input RegistrationInput) (*RedeemResult, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.findRedeemable(ctx, token)
	if err != nil {
		metrics.Invitations.WithLabelValues("redeem", "invalid").Inc()
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	input.Patronymic = strings.TrimSpace(input.Patronymic)
	input.Email = models.NormalizeEmail(input.Email)
	if err := validate(input); err != nil {
		metrics.Invitations.WithLabelValues("redeem", "invalid").Inc()
		return nil, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", input.Email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("invitation service: check email: %w", err)
	}
	if existing > 0 {
		metrics.Invitations.WithLabelValues("redeem", "duplicate").Inc()
		return nil, apperrors.ErrDuplicateAccount
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("invitation service: hash password: %w", err)
	}

	user := &models.User{
		Name:       input.Name,
		Surname:    input.Surname,
		Patronymic: input.Patronymic,
		Email:      input.Email,
		Password:   hashed,
		Role:       invitation.Role,
	}

	now := s.now()
	// The account must not be half-created if the client goes away mid-request.
	txCtx := context.WithoutCancel(ctx)
	err = s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ? AND expires_at > ?", invitation.ID, models.InvitationPending, now).
			Updates(map[string]any{"status": models.InvitationConsumed, "consumed_at": now})
		if res.Error != nil {
			return fmt.Errorf("consume invitation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrInvalidInvitation
		}

		if err := tx.Create(user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrDuplicateAccount
			}
			return fmt.Errorf("create user: %w", err)
		}

		return tx.Model(&models.Invitation{}).
			Where("id = ?", invitation.ID).
			Update("consumed_by", user.ID).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidInvitation):
			metrics.Invitations.WithLabelValues("redeem", "invalid").Inc()
			return nil, apperrors.ErrInvalidInvitation
		case errors.Is(err, apperrors.ErrDuplicateAccount):
			metrics.Invitations.WithLabelValues("redeem", "duplicate").Inc()
			return nil, apperrors.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("invitation service: redeem: %w", err)
	}

	metrics.Invitations.WithLabelValues("redeem", "ok").Inc()
	recordAudit(s.audit, txCtx, AuditEntry{
		UserID:   &user.ID,
		Email:    user.Email,
		Action:   "invitation.redeem",
		Resource: invitation.ID,
		Result:   AuditSuccess,
		Metadata: map[string]any{"role": user.Role},
	})

	// The account already exists and the invitation is spent, so the client
	// has to sign in through POST /api/auth rather than retry the link.
	sessionToken, err := s.tokens.Issue(user.ID)
	if err != nil {
		logger.WithModule("invitations").Error("registered account but could not issue session token",
			zap.String("user_id", user.ID),
			zap.String("invitation_id", invitation.ID),
			zap.Error(err),
		)
		return nil, ErrRegisteredWithoutSession.WithInternal(err)
	}

	return &RedeemResult{Token: sessionToken, User: user}, nil
}

// Lookup reports whether token still refers to a redeemable invitation.
func (s *InvitationService) Lookup(ctx context.Context, token string) (*InvitationRef, error) {
	invitation, err := s.findRedeemable(ensureContext(ctx), token)
	if err != nil {
		return nil, err
	}
	return refOf(invitation, s.now()), nil
}

// List returns invitations newest first, optionally narrowed to one status.
func (s *InvitationService) List(ctx context.Context, status string) ([]InvitationRef, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	query := s.db.WithContext(ctx).Model(&models.Invitation{})
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "":
	case InvitationFilterPending:
		query = query.Where("status = ? AND expires_at > ?", models.InvitationPending, now)
	case InvitationFilterConsumed:
		query = query.Where("status = ?", models.InvitationConsumed)
	case InvitationFilterExpired:
		query = query.Where("status = ? AND expires_at <= ?", models.InvitationPending, now)
	default:
		return nil, apperrors.NewBadRequest("status must be one of pending, consumed, expired")
	}

	var invitations []models.Invitation
	if err := query.Order("created_at DESC").Find(&invitations).Error; err != nil {
		return nil, fmt.Errorf("invitation service: list invitations: %w", err)
	}

	refs := make([]InvitationRef, 0, len(invitations))
	for i := range invitations {
		refs = append(refs, *refOf(&invitations[i], now))
	}
	return refs, nil
}

// Revoke deletes a pending invitation so its link stops working.
func (s *InvitationService) Revoke(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var invitation models.Invitation
	if err := s.db.WithContext(ctx).Take(&invitation, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound.WithMessage("Invitation not found")
		}
		return fmt.Errorf("invitation service: load invitation: %w", err)
	}
	if invitation.Status == models.InvitationConsumed {
		return apperrors.NewBadRequest("invitation has already been used")
	}

	res := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
		Delete(&models.Invitation{})
	if res.Error != nil {
		return fmt.Errorf("invitation service: delete invitation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewBadRequest("invitation has already been used")
	}

	metrics.Invitations.WithLabelValues("revoke", "ok").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "invitation.revoke",
		Resource: invitation.ID,
		Result:   AuditSuccess,
		Metadata: map[string]any{"email": invitation.Email},
	})
	return nil
}

func (s *InvitationService) findRedeemable(ctx context.Context, token string) (*models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.ErrInvalidInvitation
	}

	var invitation models.Invitation
	err := s.db.WithContext(ctx).Take(&invitation, "token_hash = ?", crypto.HashToken(token)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidInvitation
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: find invitation: %w", err)
	}
	if !invitation.Redeemable(s.now()) {
		return nil, apperrors.ErrInvalidInvitation
	}
	return &invitation, nil
}

func (s *InvitationService) sendLink(email, role, rawToken string) {
	if s.mailer == nil {
		return
	}
	message := mail.Message{
		To:      []string{email},
		Subject: "Invitation to join Picketer",
		Body:    s.inviteBody(s.inviteLink(rawToken), role),
	}
	s.tasks.Dispatch("mail.invitation", func(ctx context.Context) error {
		if err := s.mailer.Send(ctx, message); err != nil {
			if errors.Is(err, mail.ErrDisabled) {
				metrics.Deliveries.WithLabelValues("email", "disabled").Inc()
				return nil
			}
			metrics.Deliveries.WithLabelValues("email", "error").Inc()
			return fmt.Errorf("send invitation to %s: %w", email, err)
		}
		metrics.Deliveries.WithLabelValues("email", "ok").Inc()
		return nil
	})
}

func (s *InvitationService) inviteLink(token string) string {
	if s.linkBase == "" {
		return token
	}
	return s.linkBase + "/" + token
}

func (s *InvitationService) inviteBody(link, role string) string {
	return fmt.Sprintf("Hello,\n\nYou have been invited to join Picketer as %s. Use the following link to create your account:\n%s\n\nThe link can be used once and expires in %d days.\n", role, link, int(s.ttl/(24*time.Hour)))
}

func refOf(invitation *models.Invitation, now time.Time) *InvitationRef {
	status := invitation.Status
	if status == models.InvitationPending && !now.Before(invitation.ExpiresAt) {
		status = InvitationFilterExpired
	}
	return &InvitationRef{
		ID:        invitation.ID,
		Email:     invitation.Email,
		Role:      invitation.Role,
		Status:    status,
		InvitedBy: invitation.InvitedBy,
		CreatedAt: invitation.CreatedAt,
		ExpiresAt: invitation.ExpiresAt,
	}
}
