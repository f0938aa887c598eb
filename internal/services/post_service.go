package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"itinerary-service/internal/models"
	"itinerary-service/internal/pipeline"
	"itinerary-service/internal/repository"
)

// presignExpiry bounds how long collaborator-facing image links stay valid.
// It only needs to outlive one pipeline run.
const presignExpiry = 15 * time.Minute

// PostService manages trip posts and drives the resolution pipeline over them.
type PostService struct {
	Posts    repository.PostRepository
	Photos   *PhotoService
	Pipeline *pipeline.Pipeline

	mu      sync.Mutex
	flights map[uuid.UUID]*runFlight
}

// runFlight tracks one in-progress pipeline run for a post. Persistence
// happens inside the flight, so joined callers share the stored result
// without writing it a second time.
type runFlight struct {
	done   chan struct{}
	result *pipeline.Result
	err    error
}

// NewPostService creates a new PostService.
func NewPostService(posts repository.PostRepository, photos *PhotoService, pipe *pipeline.Pipeline) *PostService {
	return &PostService{
		Posts:    posts,
		Photos:   photos,
		Pipeline: pipe,
		flights:  map[uuid.UUID]*runFlight{},
	}
}

// CreatePost creates a new trip post for a user.
func (s *PostService) CreatePost(userID, title, description string, tags []string) (*models.Post, error) {
	tagData, err := json.Marshal(tags)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode tags")
	}
	post := &models.Post{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Tags:        string(tagData),
		UserID:      userID,
	}
	if err := s.Posts.Create(post); err != nil {
		return nil, errors.Wrap(err, "failed to create post")
	}
	return post, nil
}

// GetPost retrieves a post with its photos, evidence and locations.
func (s *PostService) GetPost(id uuid.UUID) (*models.Post, error) {
	return s.Posts.GetWithPhotos(id)
}

// ListPosts returns all posts owned by a user.
func (s *PostService) ListPosts(userID string) ([]models.Post, error) {
	return s.Posts.ListByUser(userID)
}

// UpdatePost changes the post's descriptive fields.
func (s *PostService) UpdatePost(id uuid.UUID, title, description string, tags []string) (*models.Post, error) {
	post, err := s.Posts.GetByID(id)
	if err != nil {
		return nil, err
	}
	if title != "" {
		post.Title = title
	}
	if description != "" {
		post.Description = description
	}
	if tags != nil {
		tagData, err := json.Marshal(tags)
		if err != nil {
			return nil, errors.Wrap(err, "could not encode tags")
		}
		post.Tags = string(tagData)
	}
	if err := s.Posts.Update(post); err != nil {
		return nil, errors.Wrap(err, "failed to update post")
	}
	return post, nil
}

// DeletePost removes a post, its photo files and all derived data.
func (s *PostService) DeletePost(id uuid.UUID) error {
	photos, err := s.Photos.ListPhotos(id)
	if err != nil {
		return err
	}
	for _, photo := range photos {
		if err := s.Photos.DeletePhoto(photo.ID); err != nil {
			return err
		}
	}
	return s.Posts.Delete(id)
}

// GetCategories returns the post's emitted categories.
func (s *PostService) GetCategories(postID uuid.UUID) ([]models.Category, error) {
	return s.Posts.ListCategories(postID)
}

// GetRoutes returns the post's recommended routes.
func (s *PostService) GetRoutes(postID uuid.UUID) ([]models.RecommendedRoute, error) {
	return s.Posts.ListRoutes(postID)
}

// RunPipeline rebuilds the pipeline input from stored state, executes one run
// and persists the result transactionally. Concurrent calls for the same post
// join the run already in flight: a single caller executes and saves, the
// rest wait for the stored result. Evidence collection happens once per
// photo: sources that already contributed to the stored history are not
// consulted again, so re-runs resolve from the same evidence and stay
// idempotent.
func (s *PostService) RunPipeline(ctx context.Context, postID uuid.UUID) (*pipeline.Result, error) {
	s.mu.Lock()
	if f, ok := s.flights[postID]; ok {
		s.mu.Unlock()
		select {
		case <-f.done:
			return f.result, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &runFlight{done: make(chan struct{})}
	s.flights[postID] = f
	s.mu.Unlock()

	f.result, f.err = s.runAndPersist(ctx, postID)

	s.mu.Lock()
	delete(s.flights, postID)
	s.mu.Unlock()
	close(f.done)

	return f.result, f.err
}

// runAndPersist is the executing side of one flight.
func (s *PostService) runAndPersist(ctx context.Context, postID uuid.UUID) (*pipeline.Result, error) {
	post, err := s.Posts.GetWithPhotos(postID)
	if err != nil {
		return nil, err
	}

	in := pipeline.Input{PostID: post.ID}
	priorIDs := make(map[uuid.UUID][]uuid.UUID, len(post.Photos))

	for _, photo := range post.Photos {
		input, ids, err := s.buildPhotoInput(photo)
		if err != nil {
			return nil, err
		}
		in.Photos = append(in.Photos, input)
		priorIDs[photo.ID] = ids
	}

	result, err := s.Pipeline.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.Posts.SavePipelineResult(result, priorIDs); err != nil {
		return nil, errors.Wrap(err, "failed to persist pipeline result")
	}
	return result, nil
}

// buildPhotoInput assembles one photo's pipeline input from its stored state,
// returning the evidence row IDs in the same order as PriorEvidence.
func (s *PostService) buildPhotoInput(photo models.Photo) (pipeline.PhotoInput, []uuid.UUID, error) {
	input := pipeline.PhotoInput{
		ID:               photo.ID,
		UploadIndex:      photo.UploadIndex,
		CapturedAtRaw:    photo.CapturedAtRaw,
		UTCOffsetMinutes: photo.UTCOffsetMinutes,
	}

	var (
		ids          []uuid.UUID
		hasExif      bool
		hasAugmented bool
	)
	for _, ev := range photo.Evidence {
		src := pipeline.ParseSource(ev.Source)
		switch src {
		case pipeline.SourceEXIF:
			hasExif = true
		case pipeline.SourceOCR, pipeline.SourceLLM:
			hasAugmented = true
		}
		input.PriorEvidence = append(input.PriorEvidence, pipeline.Evidence{
			Source:         src,
			Latitude:       ev.Latitude,
			Longitude:      ev.Longitude,
			Altitude:       ev.Altitude,
			AccuracyMeters: ev.AccuracyMeters,
			Confidence:     ev.Confidence,
			RawText:        ev.RawText,
		})
		ids = append(ids, ev.ID)
	}

	// EXIF GPS feeds the collector only until its evidence row exists; after
	// that the history already carries it.
	if !hasExif && photo.ExifLatitude != nil && photo.ExifLongitude != nil {
		input.EXIF = &pipeline.ExifGPS{
			Latitude:       *photo.ExifLatitude,
			Longitude:      *photo.ExifLongitude,
			AltitudeMeters: photo.ExifAltitude,
			AccuracyMeters: photo.ExifAccuracyMeters,
		}
	}

	// The image link is withheld once OCR/LLM evidence exists, so re-runs
	// never re-drive the collaborators for an already-augmented photo.
	if !hasAugmented {
		url, err := s.Photos.PresignedURL(photo.ID, presignExpiry)
		if err != nil {
			return input, ids, errors.Wrapf(err, "could not presign image for photo %s", photo.ID)
		}
		input.ImageURL = url
	}

	return input, ids, nil
}
