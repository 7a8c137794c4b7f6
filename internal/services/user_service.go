package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/models"
	"github.com/charlesng35/picketer/pkg/crypto"
	apperrors "github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/metrics"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.ErrNotFound.WithMessage("User not found")
	// ErrAlreadyInitialized is returned when bootstrapping a system that has accounts.
	ErrAlreadyInitialized = apperrors.New("ALREADY_INITIALIZED", "System already initialized", http.StatusConflict)
)

// BootstrapInput describes the first administrator account.
type BootstrapInput struct {
	Name       string `json:"name" validate:"required"`
	Surname    string `json:"surname" validate:"required"`
	Patronymic string `json:"patronymic" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
}

// CreateUserInput describes the fields accepted when an administrator creates an account.
type CreateUserInput struct {
	Name       string `json:"name" validate:"required"`
	Surname    string `json:"surname" validate:"required"`
	Patronymic string `json:"patronymic" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Role       string `json:"role" validate:"required,role"`
}

// UpdateUserInput enumerates attributes an administrator may change. Nil
// fields are left untouched.
type UpdateUserInput struct {
	Name       *string `json:"name" validate:"omitempty,min=1"`
	Surname    *string `json:"surname" validate:"omitempty,min=1"`
	Patronymic *string `json:"patronymic" validate:"omitempty,min=1"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Password   *string `json:"password" validate:"omitempty,min=6"`
	Role       *string `json:"role" validate:"omitempty,role"`
}

// ProfileInput holds the self-service fields. The role cannot be changed here.
type ProfileInput struct {
	Name       *string `json:"name" validate:"omitempty,min=1"`
	Surname    *string `json:"surname" validate:"omitempty,min=1"`
	Patronymic *string `json:"patronymic" validate:"omitempty,min=1"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Password   *string `json:"password" validate:"omitempty,min=6"`
}

// UserService manages the account lifecycle and password authentication.
type UserService struct {
	db     *gorm.DB
	hasher *crypto.PasswordHasher
	audit  *AuditService
	now    func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, hasher *crypto.PasswordHasher, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if hasher == nil {
		hasher = crypto.NewPasswordHasher(crypto.DefaultBcryptCost)
	}
	return &UserService{db: db, hasher: hasher, audit: audit, now: utcNow}, nil
}

// Create provisions an account on behalf of an administrator holding actorRole.
func (s *UserService) Create(ctx context.Context, actorRole string, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	input.Patronymic = strings.TrimSpace(input.Patronymic)
	input.Email = models.NormalizeEmail(input.Email)
	input.Role = strings.TrimSpace(input.Role)
	if err := validate(input); err != nil {
		return nil, err
	}
	if !models.CanGrant(actorRole, input.Role) {
		return nil, apperrors.ErrForbidden.WithMessage("Cannot grant a role above your own")
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Name:       input.Name,
		Surname:    input.Surname,
		Patronymic: input.Patronymic,
		Email:      input.Email,
		Password:   hashed,
		Role:       input.Role,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "user.create",
		Resource: user.ID,
		Result:   AuditSuccess,
		Metadata: map[string]any{"email": user.Email, "role": user.Role},
	})
	return user, nil
}

// Bootstrap creates the first administrator. It fails once any account exists.
func (s *UserService) Bootstrap(ctx context.Context, input BootstrapInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	input.Patronymic = strings.TrimSpace(input.Patronymic)
	input.Email = models.NormalizeEmail(input.Email)
	if err := validate(input); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Name:       input.Name,
		Surname:    input.Surname,
		Patronymic: input.Patronymic,
		Email:      input.Email,
		Password:   hashed,
		Role:       models.RoleAdmin,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyInitialized
		}
		return tx.Create(user).Error
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyInitialized) || isUniqueConstraintError(err) {
			return nil, ErrAlreadyInitialized
		}
		return nil, fmt.Errorf("user service: bootstrap: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Email:    user.Email,
		Action:   "setup.initialize",
		Resource: user.ID,
		Result:   AuditSuccess,
	})
	return user, nil
}

// Authenticate checks email and password and returns the matching account.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find user: %w", err)
	}

	if !s.hasher.Verify(password, user.Password) {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		recordAudit(s.audit, ctx, AuditEntry{
			UserID: &user.ID,
			Email:  user.Email,
			Action: "auth.login",
			Result: AuditFailure,
		})
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}
	user.LastLoginAt = &now

	metrics.AuthAttempts.WithLabelValues("ok").Inc()
	return &user, nil
}

// Count returns the number of active accounts.
func (s *UserService) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ensureContext(ctx)).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("user service: count users: %w", err)
	}
	return total, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ensureContext(ctx)).Take(&user, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// RoleOf returns the current role of the account. It always reads the store
// so role changes apply to already issued tokens.
func (s *UserService) RoleOf(ctx context.Context, id string) (string, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// List returns accounts ordered by surname. Every whitespace separated term of
// query must match one of surname, name or patronymic, case-insensitively.
func (s *UserService) List(ctx context.Context, query string) ([]models.User, error) {
	q := s.db.WithContext(ensureContext(ctx)).Model(&models.User{})
	for _, term := range searchTerms(query) {
		q = q.Where("LOWER(surname) LIKE ? OR LOWER(name) LIKE ? OR LOWER(patronymic) LIKE ?", term, term, term)
	}

	var users []models.User
	if err := q.Order("surname ASC, name ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}
	return users, nil
}

// ListArchived returns archived accounts, most recently archived first.
func (s *UserService) ListArchived(ctx context.Context) ([]models.ArchivedUser, error) {
	var users []models.ArchivedUser
	if err := s.db.WithContext(ensureContext(ctx)).Order("archived_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list archived users: %w", err)
	}
	return users, nil
}

// Update applies administrator edits, including role changes, to an account.
func (s *UserService) Update(ctx context.Context, actorRole, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Name = trimmedPtr(input.Name)
	input.Surname = trimmedPtr(input.Surname)
	input.Patronymic = trimmedPtr(input.Patronymic)
	input.Role = trimmedPtr(input.Role)
	if err := validate(input); err != nil {
		return nil, err
	}
	if input.Role != nil && !models.CanGrant(actorRole, *input.Role) {
		return nil, apperrors.ErrForbidden.WithMessage("Cannot grant a role above your own")
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates, err := s.collectUpdates(input.Name, input.Surname, input.Patronymic, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	if input.Role != nil {
		updates["role"] = *input.Role
	}

	if err := s.apply(ctx, user, updates); err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "user.update",
		Resource: user.ID,
		Result:   AuditSuccess,
		Metadata: map[string]any{"fields": fieldNames(updates)},
	})
	return s.GetByID(ctx, user.ID)
}

// UpdateProfile lets an account holder edit their own details.
func (s *UserService) UpdateProfile(ctx context.Context, id string, input ProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Name = trimmedPtr(input.Name)
	input.Surname = trimmedPtr(input.Surname)
	input.Patronymic = trimmedPtr(input.Patronymic)
	if err := validate(input); err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates, err := s.collectUpdates(input.Name, input.Surname, input.Patronymic, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, user, updates); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, user.ID)
}

// Archive moves an account to the archive. Its push subscriptions are dropped.
func (s *UserService) Archive(ctx context.Context, actorID, id string) (*models.ArchivedUser, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(id) == actorID {
		return nil, apperrors.NewBadRequest("you cannot archive your own account")
	}

	var archived *models.ArchivedUser
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Take(&user, "id = ?", strings.TrimSpace(id)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		archived = models.ArchiveOf(&user, s.now())
		if err := tx.Create(archived).Error; err != nil {
			return fmt.Errorf("create archive record: %w", err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PushSubscription{}).Error; err != nil {
			return fmt.Errorf("drop subscriptions: %w", err)
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: archive user: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "user.archive",
		Resource: archived.ID,
		Result:   AuditSuccess,
		Metadata: map[string]any{"email": archived.Email},
	})
	return archived, nil
}

// Delete permanently removes an account. Administrators cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == actorID {
		return apperrors.NewBadRequest("you cannot delete your own account")
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PushSubscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return fmt.Errorf("user service: delete user: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "user.delete",
		Resource: user.ID,
		Result:   AuditSuccess,
		Metadata: map[string]any{"email": user.Email},
	})
	return nil
}

func (s *UserService) collectUpdates(name, surname, patronymic, email, password *string) (map[string]any, error) {
	updates := map[string]any{}
	if name != nil {
		updates["name"] = *name
	}
	if surname != nil {
		updates["surname"] = *surname
	}
	if patronymic != nil {
		updates["patronymic"] = *patronymic
	}
	if email != nil {
		updates["email"] = models.NormalizeEmail(*email)
	}
	if password != nil {
		hashed, err := s.hasher.Hash(*password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		updates["password"] = hashed
	}
	return updates, nil
}

func (s *UserService) apply(ctx context.Context, user *models.User, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return apperrors.ErrDuplicateAccount
		}
		return fmt.Errorf("user service: update user: %w", err)
	}
	return nil
}

func fieldNames(updates map[string]any) []string {
	names := make([]string, 0, len(updates))
	for key := range updates {
		if key == "password" {
			names = append(names, "password_changed")
			continue
		}
		names = append(names, key)
	}
	return names
}
