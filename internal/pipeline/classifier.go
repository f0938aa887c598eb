package pipeline

import (
	"sort"
	"strings"
)

// Classifier aggregates resolved place names and AI-derived theme labels into
// post-level categories. A category needs either enough supporting photos or
// one very confident contribution to be emitted at all.
type Classifier struct {
	SupportThreshold float64 // fraction of the post's photos that must share the name
	HighConfidence   float64 // single-contribution confidence that bypasses support
}

// NewClassifier returns a classifier with the given emission thresholds.
func NewClassifier(supportThreshold, highConfidence float64) *Classifier {
	return &Classifier{SupportThreshold: supportThreshold, HighConfidence: highConfidence}
}

type categoryBucket struct {
	displayName string // first-seen casing
	confidences []float64
	support     int
}

// Classify builds the category set for a post from its resolutions and the
// per-photo theme labels gathered during collection. Both inputs follow the
// post's photo order, which keeps re-runs bit-identical.
func (c *Classifier) Classify(resolutions []Resolution, themes [][]ThemeLabel) []Category {
	photoCount := len(resolutions)
	buckets := map[CategoryType]map[string]*categoryBucket{
		CategoryCountry: {},
		CategoryCity:    {},
		CategoryTheme:   {},
	}

	for _, res := range resolutions {
		if res.Location == nil {
			continue
		}
		if res.Location.Country != nil {
			addContribution(buckets[CategoryCountry], *res.Location.Country, res.Location.Confidence)
		}
		if res.Location.City != nil {
			addContribution(buckets[CategoryCity], *res.Location.City, res.Location.Confidence)
		}
	}

	// Theme labels contribute per photo; duplicates within one photo count once.
	for _, labels := range themes {
		seen := map[string]bool{}
		for _, label := range labels {
			key := strings.ToLower(strings.TrimSpace(label.Name))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			addContribution(buckets[CategoryTheme], strings.TrimSpace(label.Name), label.Confidence)
		}
	}

	var out []Category
	for _, ctype := range []CategoryType{CategoryCountry, CategoryCity, CategoryTheme} {
		for _, bucket := range buckets[ctype] {
			if !c.emit(bucket, photoCount) {
				continue
			}
			out = append(out, Category{
				Type:       ctype,
				Name:       bucket.displayName,
				Confidence: mean(bucket.confidences),
			})
		}
	}

	// Deterministic output order regardless of map iteration.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// emit applies the support-or-high-confidence rule. Support counts against
// the whole post, and landing exactly on the threshold is not enough: a name
// carried by 1 of 10 photos needs the confidence gate.
func (c *Classifier) emit(bucket *categoryBucket, photoCount int) bool {
	if photoCount > 0 {
		support := float64(bucket.support) / float64(photoCount)
		if support > c.SupportThreshold {
			return true
		}
	}
	for _, conf := range bucket.confidences {
		if conf > c.HighConfidence {
			return true
		}
	}
	return false
}

// addContribution merges a name case-insensitively, keeping first-seen casing.
func addContribution(bucket map[string]*categoryBucket, name string, confidence float64) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	key := strings.ToLower(trimmed)
	b, ok := bucket[key]
	if !ok {
		b = &categoryBucket{displayName: trimmed}
		bucket[key] = b
	}
	b.support++
	b.confidences = append(b.confidences, clamp01(confidence))
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
