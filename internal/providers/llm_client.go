package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"itinerary-service/internal/pipeline"
)

// LLMClient talks to the language-model collaborator over a JSON HTTP API.
// The collaborator exposes purpose-built endpoints (ocr, locate, route); the
// client only validates and maps its structured answers.
type LLMClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewLLMClient builds a client against the collaborator's base URL.
func NewLLMClient(baseURL, model string, timeout time.Duration) *LLMClient {
	return &LLMClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *LLMClient) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "could not encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "could not build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s request failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s request returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Wrapf(err, "could not decode %s response", path)
	}
	return nil
}

type ocrRequest struct {
	ImageURL string `json:"image_url"`
}

type ocrResponse struct {
	Text       string  `json:"recognized_text"`
	Confidence float64 `json:"confidence"`
}

// RecognizeText implements pipeline.OCRClient.
func (c *LLMClient) RecognizeText(ctx context.Context, imageURL string) (*pipeline.OCRResult, error) {
	var out ocrResponse
	if err := c.post(ctx, "/v1/ocr", ocrRequest{ImageURL: imageURL}, &out); err != nil {
		return nil, err
	}
	return &pipeline.OCRResult{Text: out.Text, Confidence: out.Confidence}, nil
}

type locateRequest struct {
	Model    string     `json:"model"`
	ImageURL string     `json:"image_url,omitempty"`
	Text     string     `json:"text,omitempty"`
	Hints    exifHints  `json:"exif_hints"`
}

type exifHints struct {
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	CapturedAtLocal  string   `json:"captured_at_local,omitempty"`
	UTCOffsetMinutes *int     `json:"utc_offset_minutes,omitempty"`
}

func mapHints(h pipeline.ExifHints) exifHints {
	return exifHints(h)
}

type locateResponse struct {
	PlaceName  string  `json:"place_name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	Themes     []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"themes"`
}

// GuessFromImage implements pipeline.LocationModel.
func (c *LLMClient) GuessFromImage(ctx context.Context, imageURL string, hints pipeline.ExifHints) (*pipeline.LocationGuess, error) {
	return c.locate(ctx, locateRequest{Model: c.model, ImageURL: imageURL, Hints: mapHints(hints)})
}

// GuessFromText implements pipeline.LocationModel.
func (c *LLMClient) GuessFromText(ctx context.Context, text string, hints pipeline.ExifHints) (*pipeline.LocationGuess, error) {
	return c.locate(ctx, locateRequest{Model: c.model, Text: text, Hints: mapHints(hints)})
}

func (c *LLMClient) locate(ctx context.Context, req locateRequest) (*pipeline.LocationGuess, error) {
	var out locateResponse
	if err := c.post(ctx, "/v1/locate", req, &out); err != nil {
		return nil, err
	}
	guess := &pipeline.LocationGuess{
		PlaceName:  out.PlaceName,
		Latitude:   out.Latitude,
		Longitude:  out.Longitude,
		Confidence: out.Confidence,
		Rationale:  out.Rationale,
		Model:      c.model,
	}
	for _, t := range out.Themes {
		guess.Themes = append(guess.Themes, pipeline.ThemeLabel{Name: t.Name, Confidence: t.Confidence})
	}
	return guess, nil
}

type routeRequest struct {
	Model      string          `json:"model"`
	Categories []routeCategory `json:"categories"`
	Timeline   []routeEntry    `json:"timeline"`
}

type routeCategory struct {
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type routeEntry struct {
	PhotoID       string `json:"photo_id"`
	DayIndex      int    `json:"day_index"`
	SequenceIndex int    `json:"sequence_index"`
	CapturedAtUTC string `json:"captured_at_utc,omitempty"`
}

type routeResponse struct {
	RouteName string `json:"route_name"`
	Waypoints []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Label     string  `json:"label"`
	} `json:"waypoints"`
}

// SuggestRoute implements pipeline.RouteModel.
func (c *LLMClient) SuggestRoute(ctx context.Context, categories []pipeline.Category, timeline []pipeline.TimelineEntry) (*pipeline.RouteSuggestion, error) {
	req := routeRequest{Model: c.model}
	for _, cat := range categories {
		req.Categories = append(req.Categories, routeCategory{
			Type: string(cat.Type), Name: cat.Name, Confidence: cat.Confidence,
		})
	}
	for _, entry := range timeline {
		re := routeEntry{
			PhotoID:       entry.PhotoID.String(),
			DayIndex:      entry.DayIndex,
			SequenceIndex: entry.SequenceIndex,
		}
		if entry.CapturedAtUTC != nil {
			re.CapturedAtUTC = entry.CapturedAtUTC.Format(time.RFC3339)
		}
		req.Timeline = append(req.Timeline, re)
	}

	var out routeResponse
	if err := c.post(ctx, "/v1/route", req, &out); err != nil {
		return nil, err
	}

	suggestion := &pipeline.RouteSuggestion{RouteName: out.RouteName}
	for _, wp := range out.Waypoints {
		suggestion.Waypoints = append(suggestion.Waypoints, pipeline.SuggestedWaypoint{
			Latitude: wp.Latitude, Longitude: wp.Longitude, Label: wp.Label,
		})
	}
	return suggestion, nil
}
