package pipeline

import (
	"log"

	"github.com/google/uuid"

	"itinerary-service/internal/utils"
)

// Resolver reduces a photo's evidence set to at most one resolved location.
// Resolve is pure: identical evidence slices always produce identical output,
// which is what makes whole-post re-runs idempotent.
type Resolver struct {
	ProximityMeters float64
	ConflictMeters  float64
}

// NewResolver returns a resolver with the given corroboration and conflict
// distances in meters.
func NewResolver(proximityMeters, conflictMeters float64) *Resolver {
	return &Resolver{ProximityMeters: proximityMeters, ConflictMeters: conflictMeters}
}

// Resolve merges evidence for one photo. Evidence order matters only for
// tie-breaks and mirrors insertion (creation) order.
func (r *Resolver) Resolve(photoID uuid.UUID, evidence []Evidence) Resolution {
	valid, invalid := splitInvalid(evidence)

	// Manual correction wins outright regardless of confidence.
	if res, ok := r.resolveManual(photoID, evidence, valid); ok {
		res.Rejected = append(res.Rejected, invalid...)
		return sorted(res)
	}

	switch len(valid) {
	case 0:
		return sorted(Resolution{Rejected: invalid})
	case 1:
		only := valid[0]
		return sorted(Resolution{
			Location: adopt(photoID, evidence[only]),
			Rejected: invalid,
		})
	}

	res := r.resolveMany(photoID, evidence, valid)
	res.Rejected = append(res.Rejected, invalid...)
	return sorted(res)
}

// resolveManual handles the override rule: if any manual correction exists,
// the newest one is adopted and everything else is marked rejected.
func (r *Resolver) resolveManual(photoID uuid.UUID, evidence []Evidence, valid []int) (Resolution, bool) {
	winner := -1
	for _, i := range valid {
		if evidence[i].Source == SourceManual {
			winner = i // later corrections supersede earlier ones
		}
	}
	if winner < 0 {
		return Resolution{}, false
	}

	res := Resolution{Location: adopt(photoID, evidence[winner])}
	for _, i := range valid {
		if i == winner {
			continue
		}
		reason := RejectManualOverride
		if evidence[i].Source == SourceManual {
			reason = RejectSupersededManual
		}
		res.Rejected = append(res.Rejected, Rejection{Index: i, Reason: reason})
	}
	return res, true
}

// resolveMany applies the distance policy around an anchor record: records
// within the proximity threshold corroborate and are blended, records beyond
// the conflict threshold force single-winner selection.
func (r *Resolver) resolveMany(photoID uuid.UUID, evidence []Evidence, valid []int) Resolution {
	anchor := r.pickAnchor(evidence, valid)

	var corroborating, outside, conflicts []int
	for _, i := range valid {
		if i == anchor {
			continue
		}
		d := utils.HaversineDistance(
			evidence[anchor].Latitude, evidence[anchor].Longitude,
			evidence[i].Latitude, evidence[i].Longitude,
		)
		switch {
		case d > r.ConflictMeters:
			conflicts = append(conflicts, i)
		case d <= r.ProximityMeters:
			corroborating = append(corroborating, i)
		default:
			outside = append(outside, i)
		}
	}

	if len(conflicts) > 0 {
		return r.resolveConflict(photoID, evidence, valid)
	}

	blend := append([]int{anchor}, corroborating...)
	res := Resolution{Location: blendEvidence(photoID, evidence, blend)}
	for _, i := range outside {
		res.Rejected = append(res.Rejected, Rejection{Index: i, Reason: RejectOutsideBlend})
	}
	return res
}

// resolveConflict selects the single highest-confidence record. Ties fall to
// source priority (EXIF over OCR over LLM), then to insertion order.
func (r *Resolver) resolveConflict(photoID uuid.UUID, evidence []Evidence, valid []int) Resolution {
	winner := valid[0]
	for _, i := range valid[1:] {
		if betterEvidence(evidence[i], evidence[winner]) {
			winner = i
		}
	}

	log.Printf("Resolution conflict for photo %s: selected %s evidence (confidence %.2f), rejecting %d record(s)",
		photoID, evidence[winner].Source, evidence[winner].Confidence, len(valid)-1)

	res := Resolution{Location: adopt(photoID, evidence[winner])}
	for _, i := range valid {
		if i != winner {
			res.Rejected = append(res.Rejected, Rejection{Index: i, Reason: RejectLostConflict})
		}
	}
	return res
}

// pickAnchor returns the highest-confidence EXIF record when one exists,
// otherwise the overall best record by confidence, source rank and insertion
// order. Distances in the merge policy are measured against this record.
func (r *Resolver) pickAnchor(evidence []Evidence, valid []int) int {
	anchor := -1
	for _, i := range valid {
		if evidence[i].Source != SourceEXIF {
			continue
		}
		if anchor < 0 || evidence[i].Confidence > evidence[anchor].Confidence {
			anchor = i
		}
	}
	if anchor >= 0 {
		return anchor
	}
	anchor = valid[0]
	for _, i := range valid[1:] {
		if betterEvidence(evidence[i], evidence[anchor]) {
			anchor = i
		}
	}
	return anchor
}

// betterEvidence reports whether a should win over b: higher confidence,
// then stronger source, then earlier insertion (b came first, so false).
func betterEvidence(a, b Evidence) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Source.rank() < b.Source.rank()
}

// blendEvidence averages corroborating coordinates weighted by confidence.
// Zero-confidence sets degrade to an unweighted mean.
func blendEvidence(photoID uuid.UUID, evidence []Evidence, members []int) *ResolvedLocation {
	if len(members) == 1 {
		return adopt(photoID, evidence[members[0]])
	}

	var weightSum, lat, lng, confSum float64
	var altSum float64
	var altWeight float64
	for _, i := range members {
		w := evidence[i].Confidence
		if w <= 0 {
			w = 1e-9
		}
		weightSum += w
		lat += evidence[i].Latitude * w
		lng += evidence[i].Longitude * w
		confSum += evidence[i].Confidence * w
		if evidence[i].Altitude != nil {
			altSum += *evidence[i].Altitude * w
			altWeight += w
		}
	}

	anchor := evidence[members[0]]
	loc := &ResolvedLocation{
		PhotoID:    photoID,
		Latitude:   lat / weightSum,
		Longitude:  lng / weightSum,
		Confidence: clamp01(confSum / weightSum),
		Source:     anchor.Source,
	}
	if altWeight > 0 {
		alt := altSum / altWeight
		loc.Altitude = &alt
	}
	return loc
}

// adopt carries a single evidence record through unchanged.
func adopt(photoID uuid.UUID, ev Evidence) *ResolvedLocation {
	loc := &ResolvedLocation{
		PhotoID:    photoID,
		Latitude:   ev.Latitude,
		Longitude:  ev.Longitude,
		Confidence: clamp01(ev.Confidence),
		Source:     ev.Source,
	}
	if ev.Altitude != nil {
		alt := *ev.Altitude
		loc.Altitude = &alt
	}
	return loc
}

// splitInvalid separates indices of usable records from out-of-range ones.
func splitInvalid(evidence []Evidence) (valid []int, invalid []Rejection) {
	for i, ev := range evidence {
		if utils.ValidCoordinate(ev.Latitude, ev.Longitude) {
			valid = append(valid, i)
		} else {
			invalid = append(invalid, Rejection{Index: i, Reason: RejectInvalidCoord})
		}
	}
	return valid, invalid
}

// sorted keeps rejection lists in index order so re-runs are bit-identical.
func sorted(res Resolution) Resolution {
	for i := 1; i < len(res.Rejected); i++ {
		for j := i; j > 0 && res.Rejected[j].Index < res.Rejected[j-1].Index; j-- {
			res.Rejected[j], res.Rejected[j-1] = res.Rejected[j-1], res.Rejected[j]
		}
	}
	return res
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
