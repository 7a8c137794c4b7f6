package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/models"
	apperrors "github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/push"
)

// ErrPostNotFound indicates the requested post does not exist.
var ErrPostNotFound = apperrors.ErrNotFound.WithMessage("Post not found")

// PostInput holds the fields of a new post.
type PostInput struct {
	Text     string     `json:"text" validate:"required"`
	Location string     `json:"location" validate:"required"`
	Date     *time.Time `json:"date"`
}

// PostFilter narrows List. Date takes precedence over Location.
type PostFilter struct {
	Date     *time.Time
	Location string
}

// PostService manages picket announcements.
type PostService struct {
	db        *gorm.DB
	broadcast Broadcaster
	now       func() time.Time
}

// NewPostService constructs a PostService. broadcast may be nil.
func NewPostService(db *gorm.DB, broadcast Broadcaster) (*PostService, error) {
	if db == nil {
		return nil, errors.New("post service: db is required")
	}
	return &PostService{db: db, broadcast: broadcast, now: utcNow}, nil
}

// Create stores a post authored by author and notifies every subscriber.
func (s *PostService) Create(ctx context.Context, author *models.User, input PostInput) (*models.Post, error) {
	ctx = ensureContext(ctx)
	if author == nil {
		return nil, apperrors.ErrUnauthorized
	}

	input.Text = strings.TrimSpace(input.Text)
	input.Location = strings.TrimSpace(input.Location)
	if err := validate(input); err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:   author.ID,
		Name:     author.DisplayName(),
		Text:     input.Text,
		Location: input.Location,
		IsActive: true,
		Date:     s.now().UTC(),
	}
	if input.Date != nil && !input.Date.IsZero() {
		post.Date = input.Date.UTC()
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("post service: create post: %w", err)
	}

	if s.broadcast != nil {
		s.broadcast.Broadcast("push.post", push.Payload{
			Title: "New picket: " + post.Location,
			Body:  post.Text,
			URL:   "/posts/" + post.ID,
		})
	}
	return post, nil
}

// List returns posts newest first. A date filter selects the 24 hours starting
// at that instant; a location filter matches case-insensitive substrings.
func (s *PostService) List(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	query := s.db.WithContext(ensureContext(ctx)).Model(&models.Post{})
	switch {
	case filter.Date != nil:
		start := filter.Date.UTC()
		query = query.Where("date >= ? AND date < ?", start, start.Add(24*time.Hour))
	case strings.TrimSpace(filter.Location) != "":
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(filter.Location))+"%")
	}

	var posts []models.Post
	if err := query.Order("date DESC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("post service: list posts: %w", err)
	}
	return posts, nil
}

// Get loads a single post.
func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ensureContext(ctx)).Take(&post, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("post service: get post: %w", err)
	}
	return &post, nil
}

// ListArchived returns archived posts newest first.
func (s *PostService) ListArchived(ctx context.Context) ([]models.ArchivedPost, error) {
	var posts []models.ArchivedPost
	if err := s.db.WithContext(ensureContext(ctx)).Order("date DESC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("post service: list archived posts: %w", err)
	}
	return posts, nil
}

// Archive moves a post out of the active feed. Only its author or an
// administrator may do so.
func (s *PostService) Archive(ctx context.Context, actor *models.User, id string) (*models.ArchivedPost, error) {
	ctx = ensureContext(ctx)
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}

	var archived *models.ArchivedPost
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Take(&post, "id = ?", strings.TrimSpace(id)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if post.UserID != actor.ID && !actor.IsAdmin() {
			return apperrors.ErrForbidden.WithMessage("Only the author can archive this post")
		}

		archived = models.ArchivePost(&post, s.now())
		if err := tx.Create(archived).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("post service: archive post: %w", err)
	}
	return archived, nil
}

// Delete removes a post. Only its author may delete it.
func (s *PostService) Delete(ctx context.Context, actorID, id string) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if post.UserID != actorID {
		return apperrors.ErrForbidden.WithMessage("Only the author can delete this post")
	}
	if err := s.db.WithContext(ensureContext(ctx)).Delete(post).Error; err != nil {
		return fmt.Errorf("post service: delete post: %w", err)
	}
	return nil
}
