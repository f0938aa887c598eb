package pipeline

import (
	"context"
	"time"
)

// The pipeline consumes structured collaborator outputs and knows nothing
// about how text recognition, language models or geocoding work internally.

// OCRResult is the text-recognition collaborator's output for one image.
type OCRResult struct {
	Text       string
	Confidence float64
}

// OCRClient recognizes text in an image referenced by URL.
type OCRClient interface {
	RecognizeText(ctx context.Context, imageURL string) (*OCRResult, error)
}

// ExifHints passes whatever EXIF context exists along to the location model.
type ExifHints struct {
	Latitude         *float64
	Longitude        *float64
	CapturedAtLocal  string
	UTCOffsetMinutes *int
}

// LocationGuess is the location model's structured answer.
type LocationGuess struct {
	PlaceName  string
	Latitude   float64
	Longitude  float64
	Confidence float64
	Rationale  string
	Themes     []ThemeLabel
	Model      string
}

// LocationModel estimates a location from an image or from recognized text.
type LocationModel interface {
	GuessFromImage(ctx context.Context, imageURL string, hints ExifHints) (*LocationGuess, error)
	GuessFromText(ctx context.Context, text string, hints ExifHints) (*LocationGuess, error)
}

// Address is the reverse-geocoding collaborator's output.
type Address struct {
	Country  *string
	City     *string
	Region   *string
	Landmark *string
}

// Geocoder turns coordinates into administrative names.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*Address, error)
}

// SuggestedWaypoint is one stop in a model-suggested route, by coordinate.
type SuggestedWaypoint struct {
	Latitude  float64
	Longitude float64
	Label     string
}

// RouteSuggestion is the optional route model's narrative ordering.
type RouteSuggestion struct {
	RouteName string
	Waypoints []SuggestedWaypoint
}

// RouteModel proposes a narrative waypoint ordering from categories and the
// timeline. Its output is advisory and validated before use.
type RouteModel interface {
	SuggestRoute(ctx context.Context, categories []Category, timeline []TimelineEntry) (*RouteSuggestion, error)
}

// GeocodeCache is the shared rounded-coordinate cache in front of the
// geocoder. Implementations must be safe for concurrent use.
type GeocodeCache interface {
	Get(key string) (*Address, bool)
	Set(key string, addr *Address, ttl time.Duration)
}
