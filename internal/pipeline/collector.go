package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"itinerary-service/internal/metrics"
	"itinerary-service/internal/utils"
)

// Collector gathers location evidence for single photos. EXIF evidence is
// synchronous and always attempted first; the OCR and LLM collaborators are
// consulted only when EXIF is absent or too inaccurate, each under its own
// timeout and independently of the other.
type Collector struct {
	ocr OCRClient
	llm LocationModel

	exifAccuracyGate float64
	providerTimeout  time.Duration
	metrics          *metrics.PipelineMetrics
}

// NewCollector builds a collector. Either collaborator may be nil, in which
// case that augmentation source simply never yields evidence.
func NewCollector(ocr OCRClient, llm LocationModel, exifAccuracyGate float64, providerTimeout time.Duration, m *metrics.PipelineMetrics) *Collector {
	return &Collector{
		ocr:              ocr,
		llm:              llm,
		exifAccuracyGate: exifAccuracyGate,
		providerTimeout:  providerTimeout,
		metrics:          m,
	}
}

// EXIF confidence degrades once the reported accuracy exceeds the gate; the
// receiver still records the evidence, it just stops being trusted outright.
const (
	exifConfidenceGood     = 0.9
	exifConfidenceDegraded = 0.6
)

// Collect produces zero or more new evidence records for one photo. A
// collaborator failure or timeout yields no evidence for that source and is
// never an error for the photo.
func (c *Collector) Collect(ctx context.Context, photo PhotoInput) CollectedPhoto {
	out := CollectedPhoto{PhotoID: photo.ID}

	exif := c.collectEXIF(photo)
	if exif != nil {
		out.NewEvidence = append(out.NewEvidence, *exif)
		c.metrics.EvidenceCollected(SourceEXIF.String())
	}

	if !c.needsAugmentation(exif) || photo.ImageURL == "" {
		return out
	}

	hints := buildHints(photo)

	// OCR-derived and image-derived evidence are independent: a slow OCR
	// call never blocks the image analysis or vice versa.
	var wg sync.WaitGroup
	var mu sync.Mutex
	wg.Add(2)

	go func() {
		defer wg.Done()
		ev, analysis := c.collectOCR(ctx, photo, hints)
		mu.Lock()
		defer mu.Unlock()
		if ev != nil {
			out.NewEvidence = append(out.NewEvidence, *ev)
		}
		if analysis != nil {
			out.Analyses = append(out.Analyses, *analysis)
		}
	}()

	go func() {
		defer wg.Done()
		ev, themes, analysis := c.collectLLM(ctx, photo, hints)
		mu.Lock()
		defer mu.Unlock()
		if ev != nil {
			out.NewEvidence = append(out.NewEvidence, *ev)
		}
		out.Themes = append(out.Themes, themes...)
		if analysis != nil {
			out.Analyses = append(out.Analyses, *analysis)
		}
	}()

	wg.Wait()

	// Fix the evidence order (OCR before LLM) so downstream resolution sees
	// a deterministic sequence regardless of which call finished first.
	orderEvidence(out.NewEvidence)
	return out
}

// collectEXIF is the cheap synchronous path.
func (c *Collector) collectEXIF(photo PhotoInput) *Evidence {
	if photo.EXIF == nil {
		return nil
	}
	if !utils.ValidCoordinate(photo.EXIF.Latitude, photo.EXIF.Longitude) {
		log.Printf("Photo %s: discarding EXIF GPS with out-of-range coordinates (%.4f, %.4f)",
			photo.ID, photo.EXIF.Latitude, photo.EXIF.Longitude)
		return nil
	}

	conf := exifConfidenceGood
	if photo.EXIF.AccuracyMeters != nil && *photo.EXIF.AccuracyMeters > c.exifAccuracyGate {
		conf = exifConfidenceDegraded
	}
	ev := Evidence{
		Source:         SourceEXIF,
		Latitude:       photo.EXIF.Latitude,
		Longitude:      photo.EXIF.Longitude,
		Confidence:     conf,
		AccuracyMeters: photo.EXIF.AccuracyMeters,
	}
	if photo.EXIF.AltitudeMeters != nil {
		alt := *photo.EXIF.AltitudeMeters
		ev.Altitude = &alt
	}
	return &ev
}

// needsAugmentation applies the accuracy gate: OCR/LLM run only when EXIF is
// missing or worse than the configured accuracy.
func (c *Collector) needsAugmentation(exif *Evidence) bool {
	if exif == nil {
		return true
	}
	return exif.AccuracyMeters != nil && *exif.AccuracyMeters > c.exifAccuracyGate
}

// collectOCR recognizes text in the image and asks the location model to
// place it. The resulting evidence is tagged as OCR-sourced and carries the
// recognized text for the audit trail.
func (c *Collector) collectOCR(ctx context.Context, photo PhotoInput, hints ExifHints) (*Evidence, *RawAnalysis) {
	if c.ocr == nil || c.llm == nil {
		return nil, nil
	}

	ocrCtx, cancel := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel()

	text, err := c.ocr.RecognizeText(ocrCtx, photo.ImageURL)
	if err != nil {
		c.degrade(photo, SourceOCR, err)
		return nil, nil
	}
	if text == nil || text.Text == "" {
		return nil, nil
	}

	guessCtx, cancel2 := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel2()

	guess, err := c.llm.GuessFromText(guessCtx, text.Text, hints)
	if err != nil {
		c.degrade(photo, SourceOCR, err)
		return nil, nil
	}
	if !utils.ValidCoordinate(guess.Latitude, guess.Longitude) {
		log.Printf("Photo %s: discarding OCR-derived guess with invalid coordinates", photo.ID)
		return nil, nil
	}

	c.metrics.EvidenceCollected(SourceOCR.String())
	ev := &Evidence{
		Source:     SourceOCR,
		Latitude:   guess.Latitude,
		Longitude:  guess.Longitude,
		Confidence: clamp01(text.Confidence * guess.Confidence),
		RawText:    text.Text,
	}
	analysis := &RawAnalysis{
		Type:       "ocr_location",
		Data:       guess.Rationale,
		Model:      guess.Model,
		Confidence: ev.Confidence,
	}
	return ev, analysis
}

// collectLLM asks the location model to place the image directly.
func (c *Collector) collectLLM(ctx context.Context, photo PhotoInput, hints ExifHints) (*Evidence, []ThemeLabel, *RawAnalysis) {
	if c.llm == nil {
		return nil, nil, nil
	}

	llmCtx, cancel := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel()

	guess, err := c.llm.GuessFromImage(llmCtx, photo.ImageURL, hints)
	if err != nil {
		c.degrade(photo, SourceLLM, err)
		return nil, nil, nil
	}
	if !utils.ValidCoordinate(guess.Latitude, guess.Longitude) {
		log.Printf("Photo %s: discarding LLM guess with invalid coordinates", photo.ID)
		return nil, guess.Themes, nil
	}

	c.metrics.EvidenceCollected(SourceLLM.String())
	ev := &Evidence{
		Source:     SourceLLM,
		Latitude:   guess.Latitude,
		Longitude:  guess.Longitude,
		Confidence: clamp01(guess.Confidence),
		RawText:    guess.PlaceName,
	}
	analysis := &RawAnalysis{
		Type:       "image_location",
		Data:       guess.Rationale,
		Model:      guess.Model,
		Confidence: ev.Confidence,
	}
	return ev, guess.Themes, analysis
}

func (c *Collector) degrade(photo PhotoInput, source Source, err error) {
	e := &EvidenceUnavailableError{Source: source, Cause: err}
	log.Printf("Photo %s: %v", photo.ID, e)
	c.metrics.ProviderFailure(source.String())
}

func buildHints(photo PhotoInput) ExifHints {
	hints := ExifHints{
		CapturedAtLocal:  photo.CapturedAtRaw,
		UTCOffsetMinutes: photo.UTCOffsetMinutes,
	}
	if photo.EXIF != nil {
		lat, lng := photo.EXIF.Latitude, photo.EXIF.Longitude
		hints.Latitude = &lat
		hints.Longitude = &lng
	}
	return hints
}

// orderEvidence sorts new evidence by source rank so concurrent collection
// cannot reorder the appended history between runs.
func orderEvidence(evidence []Evidence) {
	for i := 1; i < len(evidence); i++ {
		for j := i; j > 0 && evidence[j].Source.rank() < evidence[j-1].Source.rank(); j-- {
			evidence[j], evidence[j-1] = evidence[j-1], evidence[j]
		}
	}
}
