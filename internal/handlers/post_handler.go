package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"itinerary-service/internal/auth"
	"itinerary-service/internal/pipeline"
	"itinerary-service/internal/services"
)

const InvalidUuidError = "invalid UUID"

// PostHandler defines handlers for managing trip posts.
type PostHandler struct {
	Service *services.PostService
}

// NewPostHandler creates a new PostHandler with the given PostService.
func NewPostHandler(service *services.PostService) *PostHandler {
	return &PostHandler{Service: service}
}

// postRequest is the JSON body for creating or updating a post.
type postRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// CreatePost creates a new trip post
// @Summary Create a new trip post
// @Description Create a new trip post with title, description and tags
// @Tags posts
// @Accept json
// @Produce json
// @Param post body postRequest true "Post data"
// @Success 201 {object} models.Post "Post successfully created"
// @Failure 400 {object} map[string]interface{} "Bad request - Invalid post data"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /posts [post]
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing post data: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request format",
			"details": err.Error(),
		})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Title is required",
		})
	}

	post, err := h.Service.CreatePost(auth.UserID(c), req.Title, req.Description, req.Tags)
	if err != nil {
		log.Printf("Error creating post: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create post",
			"details": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost returns a post by ID
// @Summary Get a trip post by ID
// @Description Get a post including its photos, evidence history and resolved locations
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID" Format(uuid)
// @Success 200 {object} models.Post "Post found"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Post not found"
// @Router /posts/{id} [get]
func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	idStr := c.Params("id")
	postID, err := uuid.Parse(idStr)
	if err != nil {
		log.Printf("Invalid post UUID format: %s - Error: %v", idStr, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	post, err := h.Service.GetPost(postID)
	if err != nil {
		log.Printf("Error fetching post: ID=%s, Error=%v", postID, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Post not found",
			"id":      postID.String(),
		})
	}

	return c.JSON(post)
}

// ListPosts returns the authenticated user's posts
// @Summary List the user's trip posts
// @Description Get all posts owned by the authenticated user
// @Tags posts
// @Accept json
// @Produce json
// @Success 200 {array} models.Post "List of posts"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /posts [get]
func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.Service.ListPosts(auth.UserID(c))
	if err != nil {
		log.Printf("Error listing posts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to list posts",
			"details": err.Error(),
		})
	}

	return c.JSON(posts)
}

// UpdatePost updates a post's descriptive fields
// @Summary Update a trip post
// @Description Update post title, description and tags
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID" Format(uuid)
// @Param post body postRequest true "Updated post data"
// @Success 200 {object} models.Post "Updated post"
// @Failure 400 {object} map[string]interface{} "Bad request - Invalid UUID or data"
// @Failure 404 {object} map[string]interface{} "Post not found"
// @Router /posts/{id} [put]
func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	idStr := c.Params("id")
	postID, err := uuid.Parse(idStr)
	if err != nil {
		log.Printf("Invalid post UUID format: %s - Error: %v", idStr, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing post update data: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request format",
			"details": err.Error(),
		})
	}

	post, err := h.Service.UpdatePost(postID, req.Title, req.Description, req.Tags)
	if err != nil {
		log.Printf("Error updating post: ID=%s, Error=%v", postID, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Post not found",
			"id":      postID.String(),
		})
	}

	return c.JSON(post)
}

// DeletePost deletes a post
// @Summary Delete a trip post
// @Description Delete a post, its photo files and all derived data
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID" Format(uuid)
// @Success 200 {object} map[string]interface{} "Post deleted successfully"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /posts/{id} [delete]
func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	idStr := c.Params("id")
	postID, err := uuid.Parse(idStr)
	if err != nil {
		log.Printf("Invalid post UUID format: %s - Error: %v", idStr, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	if err := h.Service.DeletePost(postID); err != nil {
		log.Printf("Error deleting post: ID=%s, Error=%v", postID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to delete post",
			"details": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post deleted successfully",
		"id":      postID.String(),
	})
}

// GetCategories returns a post's categories
// @Summary Get a post's categories
// @Description Get the country, city and theme categories emitted by the last pipeline run
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID" Format(uuid)
// @Success 200 {array} models.Category "List of categories"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /posts/{id}/categories [get]
func (h *PostHandler) GetCategories(c *fiber.Ctx) error {
	idStr := c.Params("id")
	postID, err := uuid.Parse(idStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	categories, err := h.Service.GetCategories(postID)
	if err != nil {
		log.Printf("Error listing categories: ID=%s, Error=%v", postID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to list categories",
			"details": err.Error(),
		})
	}

	return c.JSON(categories)
}

// GetRoutes returns a post's recommended routes
// @Summary Get a post's recommended routes
// @Description Get the ordered waypoint sequences recommended for this post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID" Format(uuid)
// @Success 200 {array} models.RecommendedRoute "List of routes"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /posts/{id}/routes [get]
func (h *PostHandler) GetRoutes(c *fiber.Ctx) error {
	idStr := c.Params("id")
	postID, err := uuid.Parse(idStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	routes, err := h.Service.GetRoutes(postID)
	if err != nil {
		log.Printf("Error listing routes: ID=%s, Error=%v", postID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to list routes",
			"details": err.Error(),
		})
	}

	return c.JSON(routes)
}

// RunPipeline executes the resolution pipeline for a post
// @Summary Run the location resolution pipeline
// @Description Collect evidence, resolve locations, build the timeline and derive categories and a route for the post's photos
// @Tags pipeline
// @Accept json
// @Produce json
// @Param id path string true "Post ID" Format(uuid)
// @Success 200 {object} map[string]interface{} "Pipeline result summary"
// @Failure 400 {object} map[string]interface{} "Invalid UUID or empty post"
// @Failure 404 {object} map[string]interface{} "Post not found"
// @Failure 500 {object} map[string]interface{} "Pipeline failure"
// @Router /posts/{id}/pipeline [post]
func (h *PostHandler) RunPipeline(c *fiber.Ctx) error {
	idStr := c.Params("id")
	postID, err := uuid.Parse(idStr)
	if err != nil {
		log.Printf("Invalid post UUID format: %s - Error: %v", idStr, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": InvalidUuidError,
		})
	}

	result, err := h.Service.RunPipeline(c.UserContext(), postID)
	if err != nil {
		log.Printf("Pipeline failed for post %s: %v", postID, err)
		return c.Status(pipelineStatus(err)).JSON(fiber.Map{
			"error":   true,
			"message": "Pipeline run failed",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"post_id":    result.PostID,
		"photos":     len(result.Resolutions),
		"timeline":   result.Timeline,
		"categories": result.Categories,
		"route":      result.Route,
	})
}

// pipelineStatus maps pipeline failures to HTTP status codes. Structural
// input problems are the caller's fault; everything else is a server error.
func pipelineStatus(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, pipeline.ErrNoPhotos),
		errors.Is(err, pipeline.ErrMissingPostID),
		errors.Is(err, pipeline.ErrMissingPhotoID):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
