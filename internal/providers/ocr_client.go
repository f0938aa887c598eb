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

// OCRServiceClient talks to the dedicated text-recognition collaborator.
// It exists separately from the LLM client because OCR typically runs on its
// own service with different scaling characteristics.
type OCRServiceClient struct {
	baseURL string
	client  *http.Client
}

// NewOCRServiceClient builds a client against the OCR service's base URL.
func NewOCRServiceClient(baseURL string, timeout time.Duration) *OCRServiceClient {
	return &OCRServiceClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type recognizeRequest struct {
	ImageURL string `json:"image_url"`
}

type recognizeResponse struct {
	Text       string  `json:"recognized_text"`
	Confidence float64 `json:"confidence"`
}

// RecognizeText implements pipeline.OCRClient.
func (c *OCRServiceClient) RecognizeText(ctx context.Context, imageURL string) (*pipeline.OCRResult, error) {
	body, err := json.Marshal(recognizeRequest{ImageURL: imageURL})
	if err != nil {
		return nil, errors.Wrap(err, "could not encode ocr request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/recognize", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "could not build ocr request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "ocr request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("ocr request returned status %d", resp.StatusCode)
	}

	var out recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "could not decode ocr response")
	}
	return &pipeline.OCRResult{Text: out.Text, Confidence: out.Confidence}, nil
}
