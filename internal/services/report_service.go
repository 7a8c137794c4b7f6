package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/models"
	"github.com/charlesng35/picketer/internal/storage"
	apperrors "github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/logger"
	"github.com/charlesng35/picketer/pkg/mail"
	"github.com/charlesng35/picketer/pkg/metrics"
	"github.com/charlesng35/picketer/pkg/pdf"
	"github.com/charlesng35/picketer/pkg/push"
)

// ErrReportNotFound indicates the requested report does not exist.
var ErrReportNotFound = apperrors.ErrNotFound.WithMessage("Report not found")

// Upload is one image received with a report.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ReportInput carries the form fields of a report submission.
type ReportInput struct {
	Title    string `json:"title" validate:"max=200"`
	Picketer string `json:"picketer" validate:"max=200"`
	Status   string `json:"status" validate:"max=32"`
	PostID   string `json:"post" validate:"omitempty,uuid"`
	UserID   string `json:"user" validate:"omitempty,uuid"`
}

// EmailReportInput lists the recipients of an emailed report.
type EmailReportInput struct {
	To []string `json:"to" validate:"required,min=1,dive,email"`
}

// ReportService stores picket reports and their photos.
type ReportService struct {
	db        *gorm.DB
	store     storage.Storage
	mailer    mail.Mailer
	broadcast Broadcaster
	audit     *AuditService
	now       func() time.Time
	render    func(ctx context.Context, summary pdf.ReportSummary) ([]byte, error)
}

// NewReportService constructs a ReportService. mailer, broadcast and audit may be nil.
func NewReportService(db *gorm.DB, store storage.Storage, mailer mail.Mailer, broadcast Broadcaster, audit *AuditService) (*ReportService, error) {
	if db == nil {
		return nil, errors.New("report service: db is required")
	}
	if store == nil {
		return nil, errors.New("report service: storage is required")
	}
	if mailer == nil {
		mailer = mail.NewDisabledMailer()
	}
	return &ReportService{
		db:        db,
		store:     store,
		mailer:    mailer,
		broadcast: broadcast,
		audit:     audit,
		now:       utcNow,
		render:    pdf.RenderReport,
	}, nil
}

// Create stores images and records a report submitted by creatorID.
// Administrators are notified once the report is saved.
func (s *ReportService) Create(ctx context.Context, creatorID string, input ReportInput, images []Upload) (*models.Report, error) {
	ctx = ensureContext(ctx)

	input.Title = strings.TrimSpace(input.Title)
	input.Picketer = strings.TrimSpace(input.Picketer)
	input.Status = strings.TrimSpace(input.Status)
	input.PostID = strings.TrimSpace(input.PostID)
	input.UserID = strings.TrimSpace(input.UserID)
	if err := validate(input); err != nil {
		return nil, err
	}
	if len(images) > models.MaxReportImages {
		return nil, apperrors.ErrValidation.WithMessage(fmt.Sprintf("At most %d images can be attached", models.MaxReportImages))
	}
	for _, img := range images {
		if !strings.HasPrefix(strings.ToLower(img.ContentType), "image/") {
			return nil, apperrors.ErrValidation.WithMessage(fmt.Sprintf("%s is not an image", img.Filename))
		}
	}

	report := &models.Report{
		CreatorID: creatorID,
		Title:     input.Title,
		Picketer:  input.Picketer,
		Status:    input.Status,
		Date:      s.now().UTC(),
	}
	if input.PostID != "" {
		if _, err := s.postExists(ctx, input.PostID); err != nil {
			return nil, err
		}
		report.PostID = &input.PostID
	}
	if input.UserID != "" {
		report.UserID = &input.UserID
	}

	stored := make([]storage.Object, 0, len(images))
	for _, img := range images {
		obj, err := s.store.Put(ctx, storage.NewKey("reports", img.Filename, report.Date), img.Body, img.Size, img.ContentType)
		if err != nil {
			s.discard(stored)
			return nil, fmt.Errorf("report service: store image: %w", err)
		}
		stored = append(stored, obj)
		report.Images = append(report.Images, obj.URL)
	}
	if report.Images == nil {
		report.Images = []string{}
	}

	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		s.discard(stored)
		return nil, fmt.Errorf("report service: create report: %w", err)
	}

	if s.broadcast != nil {
		title := report.Title
		if title == "" {
			title = "New report"
		}
		s.broadcast.Broadcast("push.report", push.Payload{
			Title: title,
			Body:  fmt.Sprintf("%d photos submitted", len(report.Images)),
			URL:   "/reports/" + report.ID,
		}, models.RoleAdmin)
	}
	return report, nil
}

// List returns reports newest first.
func (s *ReportService) List(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	if err := s.db.WithContext(ensureContext(ctx)).Order("date DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("report service: list reports: %w", err)
	}
	return reports, nil
}

// Get loads a report with the post it documents.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := s.db.WithContext(ensureContext(ctx)).Preload("Post").Take(&report, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("report service: get report: %w", err)
	}
	return &report, nil
}

// Email sends a PDF summary of the report. Unlike other side effects the
// delivery is synchronous and its failure is reported to the caller.
func (s *ReportService) Email(ctx context.Context, id string, input EmailReportInput) error {
	ctx = ensureContext(ctx)
	if err := validate(input); err != nil {
		return err
	}

	report, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	summary := pdf.ReportSummary{
		ID:       report.ID,
		Title:    report.Title,
		Picketer: report.Picketer,
		Status:   report.Status,
		Date:     report.Date,
		Images:   report.Images,
	}
	if report.Post != nil {
		summary.Location = report.Post.Location
	}
	var creator models.User
	if err := s.db.WithContext(ctx).Select("name", "surname").Take(&creator, "id = ?", report.CreatorID).Error; err == nil {
		summary.Submitter = creator.DisplayName()
	}

	doc, err := s.render(ctx, summary)
	if err != nil {
		return fmt.Errorf("report service: render pdf: %w", err)
	}

	subject := "Picket report"
	if report.Title != "" {
		subject += ": " + report.Title
	}
	err = s.mailer.Send(ctx, mail.Message{
		To:      input.To,
		Subject: subject,
		Body:    fmt.Sprintf("The report submitted on %s is attached.\n", report.Date.Format("2006-01-02")),
		Attachments: []mail.Attachment{{
			Filename:    "report-" + report.ID + ".pdf",
			ContentType: "application/pdf",
			Data:        doc,
		}},
	})
	if err != nil {
		metrics.Deliveries.WithLabelValues("email", "error").Inc()
		recordAudit(s.audit, ctx, AuditEntry{
			Action:   "report.email",
			Resource: report.ID,
			Result:   AuditFailure,
			Metadata: map[string]any{"error": err.Error()},
		})
		return apperrors.ErrUpstream.WithMessage("Report email could not be delivered").WithInternal(err)
	}

	metrics.Deliveries.WithLabelValues("email", "ok").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "report.email",
		Resource: report.ID,
		Result:   AuditSuccess,
		Metadata: map[string]any{"recipients": len(input.To)},
	})
	return nil
}

func (s *ReportService) postExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("report service: check post: %w", err)
	}
	if count == 0 {
		return false, ErrPostNotFound
	}
	return true, nil
}

func (s *ReportService) discard(objects []storage.Object) {
	for _, obj := range objects {
		if err := s.store.Delete(context.Background(), obj.Key); err != nil {
			logger.WithModule("reports").Warn("failed to remove orphaned upload",
				zap.String("key", obj.Key),
				zap.Error(err),
			)
		}
	}
}
