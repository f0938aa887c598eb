package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"itinerary-service/internal/models"
	"itinerary-service/internal/pipeline"
)

// PostRepository defines persistence operations for posts and the pipeline
// outputs that hang off them.
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id uuid.UUID) (*models.Post, error)
	GetWithPhotos(id uuid.UUID) (*models.Post, error)
	ListByUser(userID string) ([]models.Post, error)
	Update(post *models.Post) error
	Delete(id uuid.UUID) error
	ListCategories(postID uuid.UUID) ([]models.Category, error)
	ListRoutes(postID uuid.UUID) ([]models.RecommendedRoute, error)
	SavePipelineResult(result *pipeline.Result, priorEvidenceIDs map[uuid.UUID][]uuid.UUID) error
}

// PostRepositoryImpl provides methods to interact with posts in the database.
type PostRepositoryImpl struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepositoryImpl with the provided GORM connection.
func NewPostRepository(db *gorm.DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{db: db}
}

// Create inserts a new post.
func (r *PostRepositoryImpl) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

// GetByID retrieves a post by its ID.
func (r *PostRepositoryImpl) GetByID(id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.First(&post, "id = ?", id).Error
	return &post, err
}

// GetWithPhotos retrieves a post with its photos, evidence and locations preloaded.
func (r *PostRepositoryImpl) GetWithPhotos(id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("photos.upload_index ASC")
		}).
		Preload("Photos.Evidence", func(db *gorm.DB) *gorm.DB {
			return db.Order("location_evidences.created_at ASC")
		}).
		Preload("Photos.Location").
		First(&post, "id = ?", id).Error
	return &post, err
}

// ListByUser retrieves all posts owned by a user.
func (r *PostRepositoryImpl) ListByUser(userID string) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&posts).Error
	return posts, err
}

// Update saves an existing post.
func (r *PostRepositoryImpl) Update(post *models.Post) error {
	return r.db.Save(post).Error
}

// Delete removes a post; photos, locations, categories and routes cascade.
func (r *PostRepositoryImpl) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Post{}, "id = ?", id).Error
}

// ListCategories retrieves the post's emitted categories.
func (r *PostRepositoryImpl) ListCategories(postID uuid.UUID) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.Where("post_id = ?", postID).
		Order("category_type ASC, category_name ASC").
		Find(&categories).Error
	return categories, err
}

// ListRoutes retrieves the post's recommended routes.
func (r *PostRepositoryImpl) ListRoutes(postID uuid.UUID) ([]models.RecommendedRoute, error) {
	var routes []models.RecommendedRoute
	err := r.db.Where("post_id = ?", postID).Order("created_at DESC").Find(&routes).Error
	return routes, err
}

// routeWaypoint is the persisted shape of one stop inside route_data.
type routeWaypoint struct {
	PhotoID   string  `json:"photo_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label,omitempty"`
}

// SavePipelineResult persists one full pipeline run atomically: evidence is
// appended, resolved locations are upserted, rejection annotations land on
// the evidence history, timeline indices are written back to photos, and
// categories/routes are replaced wholesale. A failed transaction leaves none
// of it behind.
//
// priorEvidenceIDs carries, per photo, the row IDs of the evidence that was
// loaded into the pipeline input, in the same order. Rejection indices count
// through that list first and the newly appended evidence after it.
func (r *PostRepositoryImpl) SavePipelineResult(result *pipeline.Result, priorEvidenceIDs map[uuid.UUID][]uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		newIDs := make(map[uuid.UUID][]uuid.UUID, len(result.Collected))
		for _, collected := range result.Collected {
			ids, err := appendCollected(tx, collected)
			if err != nil {
				return err
			}
			newIDs[collected.PhotoID] = ids
		}

		for i := range result.Resolutions {
			res := &result.Resolutions[i]
			if err := saveResolution(tx, res); err != nil {
				return err
			}
			photoID := resolutionPhotoID(result, i)
			if photoID == uuid.Nil {
				continue
			}
			combined := append(append([]uuid.UUID{}, priorEvidenceIDs[photoID]...), newIDs[photoID]...)
			if err := markRejections(tx, res, combined); err != nil {
				return err
			}
		}

		for _, entry := range result.Timeline {
			updates := map[string]any{
				"day_index":      entry.DayIndex,
				"sequence_index": entry.SequenceIndex,
			}
			if err := tx.Model(&models.Photo{}).Where("id = ?", entry.PhotoID).Updates(updates).Error; err != nil {
				return errors.Wrap(err, "failed to write timeline placement")
			}
		}

		if err := tx.Where("post_id = ?", result.PostID).Delete(&models.Category{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear categories")
		}
		for _, cat := range result.Categories {
			row := models.Category{
				PostID:       result.PostID,
				CategoryType: string(cat.Type),
				CategoryName: cat.Name,
				Confidence:   cat.Confidence,
			}
			if err := tx.Create(&row).Error; err != nil {
				return errors.Wrap(err, "failed to save category")
			}
		}

		waypoints := make([]routeWaypoint, 0, len(result.Route.Waypoints))
		for _, wp := range result.Route.Waypoints {
			waypoints = append(waypoints, routeWaypoint{
				PhotoID:   wp.PhotoID.String(),
				Latitude:  wp.Latitude,
				Longitude: wp.Longitude,
				Label:     wp.Label,
			})
		}
		routeData, err := json.Marshal(waypoints)
		if err != nil {
			return errors.Wrap(err, "failed to encode route data")
		}
		if err := tx.Where("post_id = ?", result.PostID).Delete(&models.RecommendedRoute{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear routes")
		}
		route := models.RecommendedRoute{
			PostID:    result.PostID,
			RouteName: result.Route.Name,
			RouteData: string(routeData),
			CreatedAt: time.Now(),
		}
		return errors.Wrap(tx.Create(&route).Error, "failed to save route")
	})
}

// resolutionPhotoID recovers the photo behind the i-th resolution; the
// Collected slice follows the same photo order.
func resolutionPhotoID(result *pipeline.Result, i int) uuid.UUID {
	if loc := result.Resolutions[i].Location; loc != nil {
		return loc.PhotoID
	}
	if i < len(result.Collected) {
		return result.Collected[i].PhotoID
	}
	return uuid.Nil
}

// markRejections annotates evidence rows that lost resolution. The claims
// themselves stay untouched (audit trail); only the status fields change.
func markRejections(tx *gorm.DB, res *pipeline.Resolution, combined []uuid.UUID) error {
	for _, rej := range res.Rejected {
		if rej.Index < 0 || rej.Index >= len(combined) {
			continue
		}
		err := tx.Model(&models.LocationEvidence{}).
			Where("id = ?", combined[rej.Index]).
			Updates(map[string]any{"rejected": true, "reject_reason": rej.Reason}).Error
		if err != nil {
			return errors.Wrap(err, "failed to mark evidence rejected")
		}
	}
	return nil
}

// appendCollected writes new evidence, theme labels and raw analyses for one
// photo, returning the created evidence row IDs in order. Evidence rows are
// append-only; nothing existing is touched here.
func appendCollected(tx *gorm.DB, collected pipeline.CollectedPhoto) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, ev := range collected.NewEvidence {
		row := models.LocationEvidence{
			ID:             uuid.New(),
			PhotoID:        collected.PhotoID,
			Source:         ev.Source.String(),
			Latitude:       ev.Latitude,
			Longitude:      ev.Longitude,
			Altitude:       ev.Altitude,
			AccuracyMeters: ev.AccuracyMeters,
			Confidence:     ev.Confidence,
			RawText:        ev.RawText,
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, errors.Wrap(err, "failed to append evidence")
		}
		ids = append(ids, row.ID)
	}

	for _, theme := range collected.Themes {
		row := models.PhotoLabel{
			PhotoID:    collected.PhotoID,
			LabelType:  "theme",
			LabelName:  theme.Name,
			Confidence: theme.Confidence,
			Source:     "llm",
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, errors.Wrap(err, "failed to save photo label")
		}
	}

	for _, analysis := range collected.Analyses {
		row := models.LLMAnalysis{
			PhotoID:      collected.PhotoID,
			AnalysisType: analysis.Type,
			AnalysisData: analysis.Data,
			Confidence:   analysis.Confidence,
			ModelUsed:    analysis.Model,
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, errors.Wrap(err, "failed to save llm analysis")
		}
	}
	return ids, nil
}

// saveResolution upserts the photo's single resolved location.
func saveResolution(tx *gorm.DB, res *pipeline.Resolution) error {
	if res.Location == nil {
		return nil
	}
	loc := res.Location

	var existing models.Location
	err := tx.Where("photo_id = ?", loc.PhotoID).First(&existing).Error
	switch {
	case err == nil:
		existing.Latitude = loc.Latitude
		existing.Longitude = loc.Longitude
		existing.Altitude = loc.Altitude
		existing.Confidence = loc.Confidence
		existing.Source = loc.Source.String()
		existing.Country = loc.Country
		existing.City = loc.City
		existing.Region = loc.Region
		existing.Landmark = loc.Landmark
		if err := tx.Save(&existing).Error; err != nil {
			return errors.Wrap(err, "failed to update resolved location")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.Location{
			PhotoID:    loc.PhotoID,
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
			Altitude:   loc.Altitude,
			Confidence: loc.Confidence,
			Source:     loc.Source.String(),
			Country:    loc.Country,
			City:       loc.City,
			Region:     loc.Region,
			Landmark:   loc.Landmark,
		}
		if err := tx.Create(&row).Error; err != nil {
			return errors.Wrap(err, "failed to create resolved location")
		}
	default:
		return errors.Wrap(err, "failed to load resolved location")
	}

	return nil
}
