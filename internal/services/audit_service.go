package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/models"
)

const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditEntry is one event to record. Actor fields left empty are filled from
// the request context by recordAudit.
type AuditEntry struct {
	UserID    *string
	Email     string
	Action    string
	Resource  string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

func (e AuditEntry) toModel() (*models.AuditLog, error) {
	action := strings.TrimSpace(e.Action)
	if action == "" {
		return nil, errors.New("audit service: action is required")
	}
	result := strings.TrimSpace(e.Result)
	if result != AuditSuccess && result != AuditFailure {
		return nil, fmt.Errorf("audit service: unknown result %q", e.Result)
	}

	log := &models.AuditLog{
		Action:    action,
		Resource:  strings.TrimSpace(e.Resource),
		Result:    result,
		Email:     models.NormalizeEmail(e.Email),
		IPAddress: strings.TrimSpace(e.IPAddress),
		UserAgent: strings.TrimSpace(e.UserAgent),
	}
	if e.UserID != nil {
		if id := strings.TrimSpace(*e.UserID); id != "" {
			log.UserID = &id
		}
	}
	if e.Metadata != nil {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("audit service: encode metadata: %w", err)
		}
		log.Metadata = datatypes.JSON(meta)
	}
	return log, nil
}

// AuditFilters narrows List. Zero values match everything.
type AuditFilters struct {
	UserID   string
	Action   string
	Result   string
	Resource string
	Since    *time.Time
	Until    *time.Time
}

func (f AuditFilters) scope(db *gorm.DB) *gorm.DB {
	for column, value := range map[string]string{
		"user_id":  f.UserID,
		"action":   f.Action,
		"result":   f.Result,
		"resource": f.Resource,
	} {
		if value != "" {
			db = db.Where(column+" = ?", value)
		}
	}
	if f.Since != nil {
		db = db.Where("created_at >= ?", f.Since.UTC())
	}
	if f.Until != nil {
		db = db.Where("created_at <= ?", f.Until.UTC())
	}
	return db
}

type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService records security relevant actions such as logins,
// invitations and account changes.
type AuditService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, now: utcNow}, nil
}

// Log stores entry. Result must be AuditSuccess or AuditFailure.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	log, err := entry.toModel()
	if err != nil {
		return err
	}
	return s.db.WithContext(ensureContext(ctx)).Create(log).Error
}

// List returns one page of matching logs, newest first, and the total match count.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	page, perPage := PageBounds(opts.Page, opts.PageSize)
	query := s.db.WithContext(ensureContext(ctx)).Model(&models.AuditLog{}).Scopes(opts.Filters.scope)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count logs: %w", err)
	}
	if total == 0 {
		return []models.AuditLog{}, 0, nil
	}

	logs := make([]models.AuditLog, 0, perPage)
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("audit service: list logs: %w", err)
	}
	return logs, total, nil
}

// CleanupOlderThan deletes logs created more than retentionDays ago and
// returns how many were removed.
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	res := s.db.WithContext(ensureContext(ctx)).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
