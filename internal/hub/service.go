package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/patch"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxTitleLength    = 255
	maxSectionLength  = 128
	defaultRecents    = 10
	maxRecents        = 50
	maxBulkUpdateSize = 200
)

var updateColumns = []string{"title", "content", "category", "section", "file_url", "external_link"}

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger, now: time.Now}
}

type Filter struct {
	Category string
	Section  string
	Query    string
}

// List returns updates newest first. A category filter matches rows still
// stored under that category's legacy aliases.
func (s *Service) List(ctx context.Context, f Filter) ([]models.TeamUpdate, error) {
	q := s.db.WithContext(ctx).Preload("Author").Order("created_at DESC")

	if f.Category != "" {
		key, err := NormalizeCategory(f.Category)
		if err != nil {
			return nil, err
		}
		q = q.Where("category IN ?", storedKeys(key))
	}
	if f.Section != "" {
		q = q.Where("section = ?", f.Section)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like)
	}

	var updates []models.TeamUpdate
	if err := q.Find(&updates).Error; err != nil {
		return nil, fmt.Errorf("listing team updates: %w", err)
	}
	for i := range updates {
		updates[i].Category = canonicalOf(updates[i].Category)
	}
	return updates, nil
}

type CategoryCount struct {
	Category
	Count int64 `json:"count"`
}

// CategoryCounts returns every registry category with its number of
// updates, legacy rows counted under their canonical key.
func (s *Service) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	var rows []struct {
		Category string
		Count    int64
	}
	if err := s.db.WithContext(ctx).Model(&models.TeamUpdate{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}

	counts := make(map[string]int64)
	for _, r := range rows {
		counts[canonicalOf(r.Category)] += r.Count
	}

	registry := Categories()
	out := make([]CategoryCount, len(registry))
	for i, c := range registry {
		out[i] = CategoryCount{Category: c, Count: counts[c.Key]}
	}
	return out, nil
}

// Get loads one update and records that userID viewed it.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.TeamUpdate, error) {
	update, err := s.find(s.db.WithContext(ctx).Preload("Author"), id)
	if err != nil {
		return nil, err
	}

	view := models.RecentView{UserID: userID, UpdateID: id, ViewedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "update_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"viewed_at"}),
	}).Create(&view).Error; err != nil {
		s.logger.Warn("failed to record recent view", "user_id", userID, "update_id", id, "error", err)
	}
	return update, nil
}

type CreateInput struct {
	Title        string
	Content      string
	Category     string
	Section      *string
	FileURL      *string
	ExternalLink *string
}

func (in *CreateInput) validate() error {
	errs := make(map[string]string)
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		errs["title"] = "title is required"
	} else if len(in.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	if key, err := NormalizeCategory(in.Category); err != nil {
		errs["category"] = "unknown category"
	} else {
		in.Category = key
	}
	checkSection(errs, in.Section)
	checkURL(errs, "file_url", in.FileURL)
	checkURL(errs, "external_link", in.ExternalLink)
	if len(errs) > 0 {
		return apperr.InvalidFields(errs)
	}
	return nil
}

// checkSection counts characters, as the VARCHAR column does.
func checkSection(errs map[string]string, v *string) {
	if v != nil && utf8.RuneCountInString(*v) > maxSectionLength {
		errs["section"] = fmt.Sprintf("section must be at most %d characters", maxSectionLength)
	}
}

func checkURL(errs map[string]string, field string, v *string) {
	if v == nil || *v == "" {
		return
	}
	u, err := url.Parse(*v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs[field] = field + " must be an http(s) URL"
	}
}

func (s *Service) Create(ctx context.Context, authorID uuid.UUID, in CreateInput) (*models.TeamUpdate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	update := &models.TeamUpdate{
		Title:        in.Title,
		Content:      in.Content,
		Category:     in.Category,
		Section:      in.Section,
		FileURL:      in.FileURL,
		ExternalLink: in.ExternalLink,
		CreatedBy:    &authorID,
	}
	if err := s.db.WithContext(ctx).Create(update).Error; err != nil {
		return nil, fmt.Errorf("creating team update: %w", err)
	}

	s.logger.Info("team update created", "id", update.ID, "category", update.Category)
	return s.find(s.db.WithContext(ctx).Preload("Author"), update.ID)
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Title        *string `patch:"title"`
	Content      *string `patch:"content"`
	Category     *string `patch:"category"`
	Section      *string `patch:"section"`
	FileURL      *string `patch:"file_url"`
	ExternalLink *string `patch:"external_link"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.TeamUpdate, error) {
	errs := make(map[string]string)
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" || len(t) > maxTitleLength {
			errs["title"] = fmt.Sprintf("title must be 1 to %d characters", maxTitleLength)
		}
		in.Title = &t
	}
	if in.Category != nil {
		key, err := NormalizeCategory(*in.Category)
		if err != nil {
			errs["category"] = "unknown category"
		}
		in.Category = &key
	}
	checkSection(errs, in.Section)
	checkURL(errs, "file_url", in.FileURL)
	checkURL(errs, "external_link", in.ExternalLink)
	if len(errs) > 0 {
		return nil, apperr.InvalidFields(errs)
	}

	set, err := patch.Build(in, updateColumns...)
	if err != nil {
		if errors.Is(err, patch.ErrEmpty) {
			return nil, apperr.BadRequest("no updates provided")
		}
		return nil, err
	}

	update, err := s.find(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(update).Updates(map[string]interface{}(set)).Error; err != nil {
		return nil, fmt.Errorf("updating team update: %w", err)
	}
	return s.find(s.db.WithContext(ctx).Preload("Author"), id)
}

// Delete soft-deletes the update. Favorites and recent views of it drop
// out of listings because those load updates through the default scope.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.TeamUpdate{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting team update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("team update")
	}
	return nil
}

type BulkInput struct {
	IDs      []uuid.UUID
	Category *string `patch:"category"`
	Section  *string `patch:"section"`
}

// BulkUpdate sets category and/or section on every listed update. It
// returns how many rows changed.
func (s *Service) BulkUpdate(ctx context.Context, in BulkInput) (int64, error) {
	if len(in.IDs) == 0 {
		return 0, apperr.Invalid("ids", "at least one id is required")
	}
	if len(in.IDs) > maxBulkUpdateSize {
		return 0, apperr.Invalid("ids", fmt.Sprintf("at most %d ids per request", maxBulkUpdateSize))
	}
	if in.Category != nil {
		key, err := NormalizeCategory(*in.Category)
		if err != nil {
			return 0, err
		}
		in.Category = &key
	}
	errs := make(map[string]string)
	checkSection(errs, in.Section)
	if len(errs) > 0 {
		return 0, apperr.InvalidFields(errs)
	}

	set, err := patch.Build(in, "category", "section")
	if err != nil {
		if errors.Is(err, patch.ErrEmpty) {
			return 0, apperr.BadRequest("no updates provided")
		}
		return 0, err
	}

	res := s.db.WithContext(ctx).Model(&models.TeamUpdate{}).
		Where("id IN ?", in.IDs).
		Updates(map[string]interface{}(set))
	if res.Error != nil {
		return 0, fmt.Errorf("bulk updating team updates: %w", res.Error)
	}
	s.logger.Info("team updates bulk edited", "requested", len(in.IDs), "updated", res.RowsAffected)
	return res.RowsAffected, nil
}

// AddFavorite is idempotent.
func (s *Service) AddFavorite(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.find(s.db.WithContext(ctx), id); err != nil {
		return err
	}
	fav := models.Favorite{UserID: userID, UpdateID: id}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fav).Error; err != nil {
		return fmt.Errorf("adding favorite: %w", err)
	}
	return nil
}

func (s *Service) RemoveFavorite(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND update_id = ?", userID, id).
		Delete(&models.Favorite{}).Error; err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	return nil
}

// Favorites returns the user's favorites, most recently added first.
func (s *Service) Favorites(ctx context.Context, userID uuid.UUID) ([]models.TeamUpdate, error) {
	var favs []models.Favorite
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favs).Error; err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	ids := make([]uuid.UUID, len(favs))
	for i, f := range favs {
		ids[i] = f.UpdateID
	}
	return s.loadOrdered(ctx, ids)
}

// Recents returns the updates the user viewed most recently.
func (s *Service) Recents(ctx context.Context, userID uuid.UUID, limit int) ([]models.TeamUpdate, error) {
	if limit <= 0 {
		limit = defaultRecents
	}
	if limit > maxRecents {
		limit = maxRecents
	}

	var views []models.RecentView
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("viewed_at DESC").
		Limit(limit).
		Find(&views).Error; err != nil {
		return nil, fmt.Errorf("listing recent views: %w", err)
	}
	ids := make([]uuid.UUID, len(views))
	for i, v := range views {
		ids[i] = v.UpdateID
	}
	return s.loadOrdered(ctx, ids)
}

// loadOrdered fetches live updates by id and returns them in ids order.
func (s *Service) loadOrdered(ctx context.Context, ids []uuid.UUID) ([]models.TeamUpdate, error) {
	out := make([]models.TeamUpdate, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var updates []models.TeamUpdate
	if err := s.db.WithContext(ctx).Preload("Author").Where("id IN ?", ids).Find(&updates).Error; err != nil {
		return nil, fmt.Errorf("loading team updates: %w", err)
	}
	pos := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	sort.Slice(updates, func(i, j int) bool { return pos[updates[i].ID] < pos[updates[j].ID] })
	for i := range updates {
		updates[i].Category = canonicalOf(updates[i].Category)
	}
	return append(out, updates...), nil
}

func (s *Service) find(q *gorm.DB, id uuid.UUID) (*models.TeamUpdate, error) {
	var update models.TeamUpdate
	if err := q.First(&update, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("team update")
		}
		return nil, fmt.Errorf("loading team update: %w", err)
	}
	update.Category = canonicalOf(update.Category)
	return &update, nil
}
