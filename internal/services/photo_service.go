package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"

	"itinerary-service/internal/extraction"
	"itinerary-service/internal/models"
	"itinerary-service/internal/pipeline"
	"itinerary-service/internal/repository"
	"itinerary-service/internal/utils"
)

// PhotoMetadata carries the EXIF fields the upload client decoded from the
// image. Binary EXIF parsing happens client-side; the service only stores
// what it is handed.
type PhotoMetadata struct {
	CapturedAtRaw    string   `json:"captured_at_raw"`
	UTCOffsetMinutes *int     `json:"utc_offset_minutes"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	AltitudeMeters   *float64 `json:"altitude_meters"`
	AccuracyMeters   *float64 `json:"accuracy_meters"`
	WidthPixels      *int     `json:"width_pixels"`
	HeightPixels     *int     `json:"height_pixels"`
}

// PhotoService manages photo files in object storage and their metadata rows.
type PhotoService struct {
	Photos     repository.PhotoRepository
	Posts      repository.PostRepository
	Minio      *minio.Client
	BucketName string
}

// NewPhotoService creates a new PhotoService with the given repositories and storage client.
func NewPhotoService(photos repository.PhotoRepository, posts repository.PostRepository, minioClient *minio.Client, bucketName string) *PhotoService {
	return &PhotoService{
		Photos:     photos,
		Posts:      posts,
		Minio:      minioClient,
		BucketName: bucketName,
	}
}

// contentTypeFor maps a photo extension to its MIME type.
func contentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".heic", ".heif":
		return "image/heic"
	case ".webp":
		return "image/webp"
	case ".tiff", ".tif":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// CreatePhoto stores a single uploaded photo and its metadata.
func (s *PhotoService) CreatePhoto(postID uuid.UUID, fileHeader *multipart.FileHeader, meta PhotoMetadata) (*models.Photo, error) {
	ext := filepath.Ext(fileHeader.Filename)
	if !extraction.IsImageFile(fileHeader.Filename) {
		return nil, fmt.Errorf("unsupported image format: %s", ext)
	}
	if _, err := s.Posts.GetByID(postID); err != nil {
		return nil, errors.Wrap(err, "post not found")
	}

	srcFile, err := fileHeader.Open()
	if err != nil {
		return nil, errors.Wrap(err, "could not open uploaded file")
	}
	defer srcFile.Close()

	uploadIndex, err := s.Photos.NextUploadIndex(postID)
	if err != nil {
		return nil, errors.Wrap(err, "could not determine upload index")
	}

	return s.storePhoto(postID, uploadIndex, fileHeader.Filename, srcFile, fileHeader.Size, meta)
}

// CreatePhotosFromArchive extracts every supported image from an uploaded
// ZIP or RAR archive and stores them as one batch. Extracted files carry no
// decoded EXIF; the pipeline's image-based collaborators fill the gap.
func (s *PhotoService) CreatePhotosFromArchive(postID uuid.UUID, fileHeader *multipart.FileHeader) ([]models.Photo, error) {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".zip" && ext != ".rar" {
		return nil, fmt.Errorf("unsupported archive format: %s", ext)
	}
	if _, err := s.Posts.GetByID(postID); err != nil {
		return nil, errors.Wrap(err, "post not found")
	}

	srcFile, err := fileHeader.Open()
	if err != nil {
		return nil, errors.Wrap(err, "could not open uploaded archive")
	}
	defer srcFile.Close()

	tempArchive, err := os.CreateTemp(os.TempDir(), "upload-*"+ext)
	if err != nil {
		return nil, errors.Wrap(err, "could not create temporary file for archive")
	}
	tempArchivePath := tempArchive.Name()
	_, err = io.Copy(tempArchive, srcFile)
	tempArchive.Close()
	if err != nil {
		os.Remove(tempArchivePath)
		return nil, errors.Wrap(err, "failed to write uploaded archive")
	}

	files, destDir, err := extraction.ExtractPhotos(tempArchivePath)
	os.Remove(tempArchivePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract archive")
	}
	defer os.RemoveAll(destDir)

	if len(files) == 0 {
		return nil, fmt.Errorf("no image files found in archive")
	}

	uploadIndex, err := s.Photos.NextUploadIndex(postID)
	if err != nil {
		return nil, errors.Wrap(err, "could not determine upload index")
	}

	var photos []models.Photo
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return photos, errors.Wrap(err, "could not open extracted file")
		}
		stat, err := f.Stat()
		if err != nil {
			f.Close()
			return photos, errors.Wrap(err, "could not stat extracted file")
		}
		photo, err := s.storePhoto(postID, uploadIndex, filepath.Base(path), f, stat.Size(), PhotoMetadata{})
		f.Close()
		if err != nil {
			return photos, err
		}
		photos = append(photos, *photo)
		uploadIndex++
	}
	return photos, nil
}

// storePhoto uploads the content to object storage and records the metadata.
func (s *PhotoService) storePhoto(postID uuid.UUID, uploadIndex int, filename string, content io.Reader, size int64, meta PhotoMetadata) (*models.Photo, error) {
	photoID := uuid.New()
	ext := filepath.Ext(filename)
	storageKey := fmt.Sprintf("%s/%s%s", postID, photoID, ext)
	contentType := contentTypeFor(ext)

	_, err := s.Minio.PutObject(
		context.Background(),
		s.BucketName,
		storageKey,
		content,
		size,
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upload to MinIO")
	}

	photo := &models.Photo{
		ID:                 photoID,
		PostID:             postID,
		StorageKey:         storageKey,
		FileName:           filename,
		FileSize:           size,
		ContentType:        contentType,
		UploadedAt:         time.Now(),
		UploadIndex:        uploadIndex,
		CapturedAtRaw:      meta.CapturedAtRaw,
		UTCOffsetMinutes:   meta.UTCOffsetMinutes,
		ExifLatitude:       meta.Latitude,
		ExifLongitude:      meta.Longitude,
		ExifAltitude:       meta.AltitudeMeters,
		ExifAccuracyMeters: meta.AccuracyMeters,
		WidthPixels:        meta.WidthPixels,
		HeightPixels:       meta.HeightPixels,
	}
	if meta.CapturedAtRaw != "" {
		if ts, err := pipeline.NormalizeTimestamp(meta.CapturedAtRaw, meta.UTCOffsetMinutes); err == nil {
			photo.CapturedAtUTC = &ts
		}
	}

	if err := s.Photos.Create(photo); err != nil {
		// Remove the file from storage if the DB save fails to avoid an orphan.
		s.Minio.RemoveObject(context.Background(), s.BucketName, storageKey, minio.RemoveObjectOptions{})
		return nil, errors.Wrap(err, "failed to save metadata to database")
	}

	s.recordUploadLabels(photo)
	return photo, nil
}

// recordUploadLabels derives cheap annotations available at upload time.
// Label writes are non-fatal: the photo itself is already stored, so a
// failure is logged and the upload proceeds.
func (s *PhotoService) recordUploadLabels(photo *models.Photo) {
	gps := "absent"
	if photo.ExifLatitude != nil && photo.ExifLongitude != nil {
		gps = "present"
	}
	s.appendLabel(photo.ID, "gps", gps)

	if photo.WidthPixels != nil && photo.HeightPixels != nil {
		s.appendLabel(photo.ID, "orientation", orientation(*photo.WidthPixels, *photo.HeightPixels))
	}

	if photo.CapturedAtUTC == nil || photo.UTCOffsetMinutes == nil {
		return
	}
	local := photo.CapturedAtUTC.Add(time.Duration(*photo.UTCOffsetMinutes) * time.Minute)
	s.appendLabel(photo.ID, "time_of_day", timeOfDay(local.Hour()))
}

func (s *PhotoService) appendLabel(photoID uuid.UUID, labelType, labelName string) {
	err := s.Photos.AppendLabel(&models.PhotoLabel{
		PhotoID:    photoID,
		LabelType:  labelType,
		LabelName:  labelName,
		Confidence: 1.0,
		Source:     "exif",
	})
	if err != nil {
		log.Printf("Failed to save %s label for photo %s: %v", labelType, photoID, err)
	}
}

func orientation(width, height int) string {
	switch {
	case width > height:
		return "landscape"
	case height > width:
		return "portrait"
	default:
		return "square"
	}
}

func timeOfDay(hour int) string {
	switch {
	case hour < 6:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

// GetPhoto retrieves a photo's metadata by ID.
func (s *PhotoService) GetPhoto(id uuid.UUID) (*models.Photo, error) {
	return s.Photos.GetByID(id)
}

// ListPhotos returns a post's photos in upload order.
func (s *PhotoService) ListPhotos(postID uuid.UUID) ([]models.Photo, error) {
	return s.Photos.ListByPost(postID)
}

// PresignedURL issues a temporary download link for the photo's content. The
// same links are fed to the OCR/LLM collaborators during pipeline runs.
func (s *PhotoService) PresignedURL(id uuid.UUID, expiry time.Duration) (string, error) {
	photo, err := s.Photos.GetByID(id)
	if err != nil {
		return "", err
	}
	u, err := s.Minio.PresignedGetObject(context.Background(), s.BucketName, photo.StorageKey, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to presign download url")
	}
	return u.String(), nil
}

// DeletePhoto removes a photo's content and metadata.
func (s *PhotoService) DeletePhoto(id uuid.UUID) error {
	photo, err := s.Photos.GetByID(id)
	if err != nil {
		return err
	}
	_ = s.Minio.RemoveObject(context.Background(), s.BucketName, photo.StorageKey, minio.RemoveObjectOptions{})
	return s.Photos.Delete(id)
}

// CorrectLocation records an explicit user correction as manual evidence and
// drops the current resolved location. The next pipeline run re-resolves with
// the manual record taking precedence; nothing in the history is rewritten.
func (s *PhotoService) CorrectLocation(photoID uuid.UUID, lat, lng float64, note string) (*models.LocationEvidence, error) {
	if !utils.ValidCoordinate(lat, lng) {
		return nil, fmt.Errorf("coordinates out of range: (%f, %f)", lat, lng)
	}
	if _, err := s.Photos.GetByID(photoID); err != nil {
		return nil, err
	}

	ev := &models.LocationEvidence{
		ID:         uuid.New(),
		PhotoID:    photoID,
		Source:     pipeline.SourceManual.String(),
		Latitude:   lat,
		Longitude:  lng,
		Confidence: 1.0,
		RawText:    note,
	}
	if err := s.Photos.AppendEvidence(ev); err != nil {
		return nil, errors.Wrap(err, "failed to record manual correction")
	}
	if err := s.Photos.InvalidateLocation(photoID); err != nil {
		return nil, errors.Wrap(err, "failed to invalidate resolved location")
	}
	return ev, nil
}
