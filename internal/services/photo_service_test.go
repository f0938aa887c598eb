package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinerary-service/internal/models"
	"itinerary-service/internal/repository"
)

// fakePhotoRepo records label appends and can fail them on demand.
type fakePhotoRepo struct {
	labels   []models.PhotoLabel
	labelErr error
}

var _ repository.PhotoRepository = (*fakePhotoRepo)(nil)

func (r *fakePhotoRepo) Create(photo *models.Photo) error { return nil }
func (r *fakePhotoRepo) GetByID(id uuid.UUID) (*models.Photo, error) {
	return &models.Photo{ID: id}, nil
}
func (r *fakePhotoRepo) ListByPost(postID uuid.UUID) ([]models.Photo, error) { return nil, nil }
func (r *fakePhotoRepo) Delete(id uuid.UUID) error { return nil }
func (r *fakePhotoRepo) NextUploadIndex(postID uuid.UUID) (int, error) { return 0, nil }
func (r *fakePhotoRepo) AppendEvidence(ev *models.LocationEvidence) error { return nil }
func (r *fakePhotoRepo) ListEvidence(photoID uuid.UUID) ([]models.LocationEvidence, error) {
	return nil, nil
}
func (r *fakePhotoRepo) InvalidateLocation(photoID uuid.UUID) error { return nil }

func (r *fakePhotoRepo) AppendLabel(label *models.PhotoLabel) error {
	if r.labelErr != nil {
		return r.labelErr
	}
	r.labels = append(r.labels, *label)
	return nil
}

func intPtr(i int) *int { return &i }

func TestRecordUploadLabels(t *testing.T) {
	t.Parallel()

	repo := &fakePhotoRepo{}
	svc := &PhotoService{Photos: repo}

	lat, lng := 48.8584, 2.2945
	captured := time.Date(2024, 5, 12, 5, 0, 0, 0, time.UTC) // 14:00 local at +540
	photo := &models.Photo{
		ID:               uuid.New(),
		ExifLatitude:     &lat,
		ExifLongitude:    &lng,
		CapturedAtUTC:    &captured,
		UTCOffsetMinutes: intPtr(540),
		WidthPixels:      intPtr(4032),
		HeightPixels:     intPtr(3024),
	}
	svc.recordUploadLabels(photo)

	require.Len(t, repo.labels, 3)
	byType := map[string]string{}
	for _, l := range repo.labels {
		byType[l.LabelType] = l.LabelName
		assert.Equal(t, photo.ID, l.PhotoID)
		assert.Equal(t, "exif", l.Source)
	}
	assert.Equal(t, "present", byType["gps"])
	assert.Equal(t, "landscape", byType["orientation"])
	assert.Equal(t, "afternoon", byType["time_of_day"])
}

func TestRecordUploadLabelsWithoutMetadata(t *testing.T) {
	t.Parallel()

	repo := &fakePhotoRepo{}
	svc := &PhotoService{Photos: repo}

	svc.recordUploadLabels(&models.Photo{ID: uuid.New()})

	require.Len(t, repo.labels, 1)
	assert.Equal(t, "gps", repo.labels[0].LabelType)
	assert.Equal(t, "absent", repo.labels[0].LabelName)
}

func TestRecordUploadLabelsFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	repo := &fakePhotoRepo{labelErr: errors.New("insert failed")}
	svc := &PhotoService{Photos: repo}

	// Label persistence failing must not panic or surface an error; the
	// photo itself is already stored at this point.
	svc.recordUploadLabels(&models.Photo{ID: uuid.New()})
	assert.Empty(t, repo.labels)
}

func TestOrientation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "landscape", orientation(4032, 3024))
	assert.Equal(t, "portrait", orientation(3024, 4032))
	assert.Equal(t, "square", orientation(2000, 2000))
}

func TestTimeOfDay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "night", timeOfDay(3))
	assert.Equal(t, "morning", timeOfDay(9))
	assert.Equal(t, "afternoon", timeOfDay(14))
	assert.Equal(t, "evening", timeOfDay(21))
}
