package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func resolvedWithCity(city string, confidence float64) Resolution {
	return Resolution{Location: &ResolvedLocation{
		PhotoID:    uuid.New(),
		Latitude:   37.5665,
		Longitude:  126.9780,
		Confidence: confidence,
		Source:     SourceEXIF,
		Country:    strPtr("South Korea"),
		City:       strPtr(city),
	}}
}

func TestClassifySupportThreshold(t *testing.T) {
	t.Parallel()

	// 6 of 10 photos in Seoul clears the 10% support threshold.
	var resolutions []Resolution
	for i := 0; i < 6; i++ {
		resolutions = append(resolutions, resolvedWithCity("Seoul", 0.8))
	}
	for i := 0; i < 4; i++ {
		resolutions = append(resolutions, Resolution{Location: &ResolvedLocation{
			PhotoID: uuid.New(), Latitude: 37.5, Longitude: 127.0, Confidence: 0.7, Source: SourceEXIF,
		}})
	}

	categories := NewClassifier(0.10, 0.9).Classify(resolutions, nil)

	var cities []Category
	for _, c := range categories {
		if c.Type == CategoryCity {
			cities = append(cities, c)
		}
	}
	require.Len(t, cities, 1)
	assert.Equal(t, "Seoul", cities[0].Name)
	assert.InDelta(t, 0.8, cities[0].Confidence, 1e-9)
}

func TestClassifyExactThresholdSupportNeedsHighConfidence(t *testing.T) {
	t.Parallel()

	// 10 photos: 6 in Seoul, 1 in Busan, 3 unresolved. Busan's support lands
	// exactly on the 10% threshold, which is not enough; only a contribution
	// above the confidence gate can carry it.
	build := func(busanConf float64) []Resolution {
		var resolutions []Resolution
		for i := 0; i < 6; i++ {
			resolutions = append(resolutions, resolvedWithCity("Seoul", 0.7))
		}
		resolutions = append(resolutions, resolvedWithCity("Busan", busanConf))
		for i := 0; i < 3; i++ {
			resolutions = append(resolutions, Resolution{})
		}
		return resolutions
	}

	c := NewClassifier(0.10, 0.9)

	cities := categoryNames(c.Classify(build(0.7), nil), CategoryCity)
	assert.Contains(t, cities, "Seoul")
	assert.NotContains(t, cities, "Busan")

	cities = categoryNames(c.Classify(build(0.95), nil), CategoryCity)
	assert.Contains(t, cities, "Busan")
}

func TestClassifyHighConfidenceBypassesSupport(t *testing.T) {
	t.Parallel()

	// 1 of 20 is below the support threshold; only the high-confidence
	// contribution is emitted.
	resolutions := []Resolution{resolvedWithCity("Busan", 0.95)}
	for i := 0; i < 19; i++ {
		resolutions = append(resolutions, Resolution{Location: &ResolvedLocation{
			PhotoID: uuid.New(), Latitude: 37.5, Longitude: 127.0, Confidence: 0.7, Source: SourceEXIF,
		}})
	}

	c := NewClassifier(0.10, 0.9)
	categories := c.Classify(resolutions, nil)
	assert.Contains(t, categoryNames(categories, CategoryCity), "Busan")

	// The same single photo at confidence 0.5 stays below both gates.
	resolutions[0] = resolvedWithCity("Busan", 0.5)
	categories = c.Classify(resolutions, nil)
	assert.NotContains(t, categoryNames(categories, CategoryCity), "Busan")
}

func TestClassifyMergesNamesCaseInsensitively(t *testing.T) {
	t.Parallel()

	resolutions := []Resolution{
		resolvedWithCity("Seoul", 0.8),
		resolvedWithCity("seoul", 0.6),
		resolvedWithCity("SEOUL", 1.0),
	}

	categories := NewClassifier(0.10, 0.9).Classify(resolutions, nil)

	var cities []Category
	for _, c := range categories {
		if c.Type == CategoryCity {
			cities = append(cities, c)
		}
	}
	require.Len(t, cities, 1)
	assert.Equal(t, "Seoul", cities[0].Name, "first-seen casing wins")
	assert.InDelta(t, 0.8, cities[0].Confidence, 1e-9, "mean of contributions")
}

func TestClassifyThemes(t *testing.T) {
	t.Parallel()

	resolutions := []Resolution{
		resolvedWithCity("Seoul", 0.8),
		resolvedWithCity("Seoul", 0.8),
	}
	themes := [][]ThemeLabel{
		{{Name: "food", Confidence: 0.7}, {Name: "Food", Confidence: 0.9}}, // dedupe within one photo
		{{Name: "food", Confidence: 0.5}},
	}

	categories := NewClassifier(0.10, 0.9).Classify(resolutions, themes)

	var food *Category
	for i := range categories {
		if categories[i].Type == CategoryTheme && categories[i].Name == "food" {
			food = &categories[i]
		}
	}
	require.NotNil(t, food)
	assert.InDelta(t, 0.6, food.Confidence, 1e-9)
}

func TestClassifyOutputIsSorted(t *testing.T) {
	t.Parallel()

	resolutions := []Resolution{
		resolvedWithCity("Seoul", 0.8),
		resolvedWithCity("Busan", 0.8),
	}
	themes := [][]ThemeLabel{{{Name: "temples", Confidence: 0.95}}}

	c := NewClassifier(0.10, 0.9)
	first := c.Classify(resolutions, themes)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(resolutions, themes))
	}

	for i := 1; i < len(first); i++ {
		if first[i-1].Type == first[i].Type {
			assert.LessOrEqual(t, first[i-1].Name, first[i].Name)
		}
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	t.Parallel()

	categories := NewClassifier(0.10, 0.9).Classify(nil, nil)
	assert.Empty(t, categories)
}

func categoryNames(categories []Category, ctype CategoryType) []string {
	var names []string
	for _, c := range categories {
		if c.Type == ctype {
			names = append(names, c.Name)
		}
	}
	return names
}
