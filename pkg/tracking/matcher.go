package tracking

import (
	"math"
	"sort"
	"strings"

	"github.com/teslashibe/go-fortuna/pkg/tracking/detection"
)

// MatchDecision is the matcher's verdict for one detection: either the
// entity it continues, or an instruction to create a fresh one.
type MatchDecision struct {
	Detection int      // index into the detection slice
	Entity    EntityID // matched entity, valid when Matched
	Matched   bool     // false means create a new entity
}

// candidate is one detection/entity pairing under consideration.
type candidate struct {
	det    int
	entity EntityID
	score  float64
	conf   float64 // detection confidence, tie-breaker
}

// MatchDetections pairs a frame's detections with the known entities.
//
// A pairing is eligible when the labels are compatible and the similarity
// score clears cfg.MatchThreshold. Eligible pairs are claimed greedily,
// best score first, each detection and each entity at most once. The
// ordering is fully deterministic: ties fall back to detection confidence,
// then entity ID, then detection index. Every unmatched detection becomes
// a create decision.
//
// diag is the diagonal of the detector image in pixels, used to normalize
// center distance into a 0-1 similarity.
func MatchDetections(dets []detection.RawDetection, entities []EntityView, diag float64, cfg Config) []MatchDecision {
	if diag <= 0 {
		diag = float64(cfg.DetectorImageMaxDimension) * math.Sqrt2
	}

	var cands []candidate
	for i, d := range dets {
		for _, e := range entities {
			if !labelsCompatible(d, e, cfg.LabelConfidenceFloor) {
				continue
			}
			score := similarity(d.Center, e.Center, diag)
			if score < cfg.MatchThreshold {
				continue
			}
			cands = append(cands, candidate{det: i, entity: e.ID, score: score, conf: d.Confidence})
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.conf != b.conf {
			return a.conf > b.conf
		}
		if a.entity != b.entity {
			return a.entity < b.entity
		}
		return a.det < b.det
	})

	detTaken := make([]bool, len(dets))
	entityTaken := make(map[EntityID]bool, len(entities))
	decisions := make([]MatchDecision, len(dets))
	for i := range decisions {
		decisions[i] = MatchDecision{Detection: i}
	}

	for _, c := range cands {
		if detTaken[c.det] || entityTaken[c.entity] {
			continue
		}
		detTaken[c.det] = true
		entityTaken[c.entity] = true
		decisions[c.det] = MatchDecision{Detection: c.det, Entity: c.entity, Matched: true}
	}

	return decisions
}

// similarity maps the center distance between a detection and an entity
// into 0-1, where 1 is a perfect overlap and 0 is a full diagonal apart.
func similarity(a, b detection.Point, diag float64) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dist := math.Sqrt(dx*dx + dy*dy)
	s := 1 - dist/diag
	if s < 0 {
		return 0
	}
	return s
}

// labelsCompatible reports whether a detection may continue an entity's
// identity. Unknown labels match anything, equal labels match, and two
// low-confidence hints are both treated as unknown.
func labelsCompatible(d detection.RawDetection, e EntityView, floor float64) bool {
	if d.Label == "" || e.Label == "" {
		return true
	}
	if strings.EqualFold(d.Label, e.Label) {
		return true
	}
	return d.Confidence < floor && e.Confidence < floor
}
