package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// Structural errors reject a run before it starts. Everything else in this
// file is recovered locally: a post never fails because one photo or one
// evidence source did.
var (
	ErrNoPhotos       = errors.New("post has no photos")
	ErrMissingPhotoID = errors.New("photo is missing an identifier")
	ErrMissingPostID  = errors.New("post is missing an identifier")
)

// ErrUnparsableTimestamp marks capture timestamps no accepted encoding matches.
var ErrUnparsableTimestamp = errors.New("unparsable capture timestamp")

// ErrInvalidCoordinate marks out-of-range latitude/longitude values. Evidence
// or waypoints carrying them are discarded, never persisted.
var ErrInvalidCoordinate = errors.New("coordinate out of range")

// ErrInsufficientWaypoints signals that a suggested route kept fewer than two
// valid waypoints after validation; callers fall back to chronological order.
var ErrInsufficientWaypoints = errors.New("fewer than two valid waypoints after validation")

// EvidenceUnavailableError records one source failing or timing out for one
// photo. It degrades that source to zero evidence and nothing more.
type EvidenceUnavailableError struct {
	Source Source
	Cause  error
}

func (e *EvidenceUnavailableError) Error() string {
	return fmt.Sprintf("evidence unavailable from %s: %v", e.Source, e.Cause)
}

func (e *EvidenceUnavailableError) Unwrap() error { return e.Cause }

// EnrichmentFailedError records the geocoder being unreachable for one
// coordinate. Names stay null; the location is still resolved.
type EnrichmentFailedError struct {
	Latitude  float64
	Longitude float64
	Cause     error
}

func (e *EnrichmentFailedError) Error() string {
	return fmt.Sprintf("enrichment failed for (%.4f, %.4f): %v", e.Latitude, e.Longitude, e.Cause)
}

func (e *EnrichmentFailedError) Unwrap() error { return e.Cause }

// Rejection reasons recorded against evidence that lost resolution.
const (
	RejectLostConflict     = "conflict: lower confidence than selected evidence"
	RejectOutsideBlend     = "outside corroboration range of anchor"
	RejectManualOverride   = "overridden by manual correction"
	RejectInvalidCoord     = "invalid coordinate"
	RejectSupersededManual = "superseded by newer manual correction"
)
