package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"itinerary-service/internal/services"
)

const PhotoNotFoundError = "photo not found"

// downloadURLExpiry bounds user-facing presigned links.
const downloadURLExpiry = time.Hour

// PhotoHandler defines handlers for managing photo resources.
type PhotoHandler struct {
	Service *services.PhotoService
}

// NewPhotoHandler creates a new PhotoHandler with the given PhotoService.
func NewPhotoHandler(service *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{Service: service}
}

// UploadPhoto handles a single photo upload
// @Summary Upload a photo to a post
// @Description Upload one photo; EXIF metadata decoded by the client travels in the optional "metadata" form field as JSON
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Post ID" Format(uuid)
// @Param file formData file true "Photo file"
// @Param metadata formData string false "Decoded EXIF metadata as JSON"
// @Success 201 {object} models.Photo "Photo successfully uploaded"
// @Failure 400 {object} map[string]interface{} "Bad request - Invalid file or metadata"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /posts/{id}/photos [post]
func (h *PhotoHandler) UploadPhoto(c *fiber.Ctx) error {
	idStr := c.Params("id")
	postID, err := uuid.Parse(idStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Printf("Missing photo file in upload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "No file provided",
		})
	}

	var meta services.PhotoMetadata
	if raw := c.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			log.Printf("Error parsing photo metadata: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   true,
				"message": "Invalid metadata format",
				"details": err.Error(),
			})
		}
	}

	photo, err := h.Service.CreatePhoto(postID, fileHeader, meta)
	if err != nil {
		log.Printf("Error uploading photo: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to upload photo",
			"details": err.Error(),
		})
	}

	log.Printf("Photo uploaded: ID=%s, Post=%s, Size=%d", photo.ID, postID, photo.FileSize)
	return c.Status(fiber.StatusCreated).JSON(photo)
}

// UploadArchive handles a batch upload from a ZIP or RAR archive
// @Summary Upload a photo archive to a post
// @Description Extract every supported image from a ZIP or RAR archive and store them as one batch
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Post ID" Format(uuid)
// @Param file formData file true "Archive file (ZIP or RAR)"
// @Success 201 {array} models.Photo "Extracted photos"
// @Failure 400 {object} map[string]interface{} "Bad request - Invalid archive"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /posts/{id}/photos/archive [post]
func (h *PhotoHandler) UploadArchive(c *fiber.Ctx) error {
	idStr := c.Params("id")
	postID, err := uuid.Parse(idStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "No file provided",
		})
	}

	photos, err := h.Service.CreatePhotosFromArchive(postID, fileHeader)
	if err != nil {
		log.Printf("Error uploading photo archive: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to process archive",
			"details": err.Error(),
		})
	}

	log.Printf("Archive processed: Post=%s, Photos=%d", postID, len(photos))
	return c.Status(fiber.StatusCreated).JSON(photos)
}

// GetPhoto returns a photo's metadata
// @Summary Get a photo by ID
// @Description Get a photo's metadata including its evidence history and resolved location
// @Tags photos
// @Accept json
// @Produce json
// @Param id path string true "Photo ID" Format(uuid)
// @Success 200 {object} models.Photo "Photo found"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Photo not found"
// @Router /photos/{id} [get]
func (h *PhotoHandler) GetPhoto(c *fiber.Ctx) error {
	idStr := c.Params("id")
	photoID, err := uuid.Parse(idStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	photo, err := h.Service.GetPhoto(photoID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": PhotoNotFoundError,
			"id":      photoID.String(),
		})
	}

	return c.JSON(photo)
}

// DownloadPhoto redirects to a presigned download link
// @Summary Download a photo
// @Description Issue a temporary presigned download link and redirect to it
// @Tags photos
// @Produce json
// @Param id path string true "Photo ID" Format(uuid)
// @Success 307 {string} string "Redirect to presigned URL"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Photo not found"
// @Router /photos/{id}/download [get]
func (h *PhotoHandler) DownloadPhoto(c *fiber.Ctx) error {
	idStr := c.Params("id")
	photoID, err := uuid.Parse(idStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	url, err := h.Service.PresignedURL(photoID, downloadURLExpiry)
	if err != nil {
		log.Printf("Error presigning photo download: ID=%s, Error=%v", photoID, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": PhotoNotFoundError,
			"id":      photoID.String(),
		})
	}

	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

// DeletePhoto deletes a photo
// @Summary Delete a photo
// @Description Delete a photo's content and metadata
// @Tags photos
// @Accept json
// @Produce json
// @Param id path string true "Photo ID" Format(uuid)
// @Success 200 {object} map[string]interface{} "Photo deleted successfully"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /photos/{id} [delete]
func (h *PhotoHandler) DeletePhoto(c *fiber.Ctx) error {
	idStr := c.Params("id")
	photoID, err := uuid.Parse(idStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	if err := h.Service.DeletePhoto(photoID); err != nil {
		log.Printf("Error deleting photo: ID=%s, Error=%v", photoID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to delete photo",
			"details": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Photo deleted successfully",
		"id":      photoID.String(),
	})
}

// correctionRequest is the JSON body for a manual location correction.
type correctionRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Note      string  `json:"note"`
}

// CorrectLocation records a manual location correction
// @Summary Correct a photo's location
// @Description Record an explicit user correction as manual evidence; it overrides every other source on the next pipeline run
// @Tags photos
// @Accept json
// @Produce json
// @Param id path string true "Photo ID" Format(uuid)
// @Param correction body correctionRequest true "Corrected coordinates"
// @Success 201 {object} models.LocationEvidence "Manual evidence recorded"
// @Failure 400 {object} map[string]interface{} "Invalid UUID or coordinates"
// @Failure 404 {object} map[string]interface{} "Photo not found"
// @Router /photos/{id}/correction [post]
func (h *PhotoHandler) CorrectLocation(c *fiber.Ctx) error {
	idStr := c.Params("id")
	photoID, err := uuid.Parse(idStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	var req correctionRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing correction data: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request format",
			"details": err.Error(),
		})
	}

	ev, err := h.Service.CorrectLocation(photoID, req.Latitude, req.Longitude, req.Note)
	if err != nil {
		log.Printf("Error recording correction: ID=%s, Error=%v", photoID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to record correction",
			"details": err.Error(),
		})
	}

	log.Printf("Manual correction recorded: Photo=%s, Lat=%.6f, Lng=%.6f", photoID, req.Latitude, req.Longitude)
	return c.Status(fiber.StatusCreated).JSON(ev)
}
