package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"itinerary-service/internal/models"
)

// PhotoRepository defines persistence operations for photos and their
// evidence history.
type PhotoRepository interface {
	Create(photo *models.Photo) error
	GetByID(id uuid.UUID) (*models.Photo, error)
	ListByPost(postID uuid.UUID) ([]models.Photo, error)
	Delete(id uuid.UUID) error
	NextUploadIndex(postID uuid.UUID) (int, error)
	AppendEvidence(ev *models.LocationEvidence) error
	ListEvidence(photoID uuid.UUID) ([]models.LocationEvidence, error)
	AppendLabel(label *models.PhotoLabel) error
	InvalidateLocation(photoID uuid.UUID) error
}

// PhotoRepositoryImpl provides methods to interact with the Photo model in the database.
type PhotoRepositoryImpl struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new PhotoRepositoryImpl instance with the provided GORM database connection.
func NewPhotoRepository(db *gorm.DB) *PhotoRepositoryImpl {
	return &PhotoRepositoryImpl{db: db}
}

// Create inserts a new photo record.
func (r *PhotoRepositoryImpl) Create(photo *models.Photo) error {
	return r.db.Create(photo).Error
}

// GetByID retrieves a photo with its evidence and location preloaded.
func (r *PhotoRepositoryImpl) GetByID(id uuid.UUID) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.
		Preload("Evidence", func(db *gorm.DB) *gorm.DB {
			return db.Order("location_evidences.created_at ASC")
		}).
		Preload("Location").
		First(&photo, "id = ?", id).Error
	return &photo, err
}

// ListByPost retrieves all photos of a post in upload order.
func (r *PhotoRepositoryImpl) ListByPost(postID uuid.UUID) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.Where("post_id = ?", postID).Order("upload_index ASC").Find(&photos).Error
	return photos, err
}

// Delete removes a photo; evidence, location and labels cascade.
func (r *PhotoRepositoryImpl) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Photo{}, "id = ?", id).Error
}

// NextUploadIndex returns the next free upload slot within a post.
func (r *PhotoRepositoryImpl) NextUploadIndex(postID uuid.UUID) (int, error) {
	var count int64
	err := r.db.Model(&models.Photo{}).Where("post_id = ?", postID).Count(&count).Error
	return int(count), err
}

// AppendEvidence adds one evidence record. The history is append-only: there
// is deliberately no update or delete counterpart here.
func (r *PhotoRepositoryImpl) AppendEvidence(ev *models.LocationEvidence) error {
	return r.db.Create(ev).Error
}

// ListEvidence retrieves the photo's full evidence history in insertion order.
func (r *PhotoRepositoryImpl) ListEvidence(photoID uuid.UUID) ([]models.LocationEvidence, error) {
	var evidence []models.LocationEvidence
	err := r.db.Where("photo_id = ?", photoID).Order("created_at ASC").Find(&evidence).Error
	return evidence, err
}

// AppendLabel adds one derived annotation to a photo.
func (r *PhotoRepositoryImpl) AppendLabel(label *models.PhotoLabel) error {
	return r.db.Create(label).Error
}

// InvalidateLocation drops the photo's resolved location so the next pipeline
// run re-resolves and re-enriches it. Evidence stays untouched.
func (r *PhotoRepositoryImpl) InvalidateLocation(photoID uuid.UUID) error {
	return r.db.Delete(&models.Location{}, "photo_id = ?", photoID).Error
}
