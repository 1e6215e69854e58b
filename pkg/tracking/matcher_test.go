package tracking

import (
	"testing"

	"github.com/teslashibe/go-fortuna/pkg/tracking/detection"
)

// Matching tests use diag=1000, so score = 1 - distance/1000 and the
// default 0.82 threshold admits pairs up to 180px apart.
const testDiag = 1000.0

func det(x, y int, label string, conf float64) detection.RawDetection {
	return detection.RawDetection{
		Confidence: conf,
		Label:      label,
		Center:     detection.Point{X: x, Y: y},
		Box:        detection.Box{X: x - 20, Y: y - 20, W: 40, H: 40},
	}
}

func entity(id EntityID, x, y int, label string, conf float64) EntityView {
	return EntityView{
		ID:         id,
		Center:     detection.Point{X: x, Y: y},
		Label:      label,
		Confidence: conf,
	}
}

func TestMatchDetections_EmptyWorld(t *testing.T) {
	dets := []detection.RawDetection{
		det(100, 100, "bottle", 0.9),
		det(500, 300, "chair", 0.8),
	}

	decisions := MatchDetections(dets, nil, testDiag, DefaultConfig())
	if len(decisions) != 2 {
		t.Fatalf("Expected 2 decisions, got %d", len(decisions))
	}
	for i, dec := range decisions {
		if dec.Matched {
			t.Errorf("Decision %d: expected create, got match to entity %d", i, dec.Entity)
		}
		if dec.Detection != i {
			t.Errorf("Decision %d: expected detection index %d, got %d", i, i, dec.Detection)
		}
	}
}

func TestMatchDetections_RematchNearby(t *testing.T) {
	entities := []EntityView{entity(1, 100, 100, "bottle", 0.9)}
	dets := []detection.RawDetection{det(110, 100, "bottle", 0.85)}

	decisions := MatchDetections(dets, entities, testDiag, DefaultConfig())
	if !decisions[0].Matched || decisions[0].Entity != 1 {
		t.Errorf("Expected match to entity 1, got %+v", decisions[0])
	}
}

func TestMatchDetections_FarDetectionCreates(t *testing.T) {
	entities := []EntityView{entity(1, 100, 100, "bottle", 0.9)}
	// 300px away: score 0.7, below the 0.82 threshold
	dets := []detection.RawDetection{det(400, 100, "bottle", 0.85)}

	decisions := MatchDetections(dets, entities, testDiag, DefaultConfig())
	if decisions[0].Matched {
		t.Errorf("Expected create for far detection, got match to entity %d", decisions[0].Entity)
	}
}

func TestMatchDetections_LabelCompatibility(t *testing.T) {
	tests := []struct {
		name      string
		detLabel  string
		detConf   float64
		entLabel  string
		entConf   float64
		wantMatch bool
	}{
		{"equal labels", "bottle", 0.9, "bottle", 0.9, true},
		{"equal ignoring case", "Bottle", 0.9, "bottle", 0.9, true},
		{"detection label unknown", "", 0.9, "bottle", 0.9, true},
		{"entity label unknown", "bottle", 0.9, "", 0.9, true},
		{"both hints weak", "bottle", 0.3, "cup", 0.2, true},
		{"confident mismatch", "bottle", 0.9, "cup", 0.9, false},
		{"one side confident mismatch", "bottle", 0.9, "cup", 0.3, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entities := []EntityView{entity(1, 100, 100, tc.entLabel, tc.entConf)}
			dets := []detection.RawDetection{det(105, 100, tc.detLabel, tc.detConf)}

			decisions := MatchDetections(dets, entities, testDiag, DefaultConfig())
			if decisions[0].Matched != tc.wantMatch {
				t.Errorf("Matched=%v, want %v", decisions[0].Matched, tc.wantMatch)
			}
		})
	}
}

func TestMatchDetections_GreedyPrefersBestScore(t *testing.T) {
	entities := []EntityView{entity(1, 0, 0, "", 0.9)}
	dets := []detection.RawDetection{
		det(50, 0, "", 0.9), // score 0.95
		det(10, 0, "", 0.9), // score 0.99, should claim the entity
	}

	decisions := MatchDetections(dets, entities, testDiag, DefaultConfig())
	if decisions[0].Matched {
		t.Errorf("Detection 0 should create, got match to %d", decisions[0].Entity)
	}
	if !decisions[1].Matched || decisions[1].Entity != 1 {
		t.Errorf("Detection 1 should match entity 1, got %+v", decisions[1])
	}
}

func TestMatchDetections_PairsOffCorrectly(t *testing.T) {
	entities := []EntityView{
		entity(1, 0, 0, "", 0.9),
		entity(2, 200, 0, "", 0.9),
	}
	dets := []detection.RawDetection{
		det(5, 0, "", 0.9),
		det(205, 0, "", 0.9),
	}

	decisions := MatchDetections(dets, entities, testDiag, DefaultConfig())
	if !decisions[0].Matched || decisions[0].Entity != 1 {
		t.Errorf("Detection 0 should match entity 1, got %+v", decisions[0])
	}
	if !decisions[1].Matched || decisions[1].Entity != 2 {
		t.Errorf("Detection 1 should match entity 2, got %+v", decisions[1])
	}
}

func TestMatchDetections_TieBreakLowerEntityID(t *testing.T) {
	// Detection exactly halfway between two entities: lower ID wins
	entities := []EntityView{
		entity(2, 200, 100, "", 0.9),
		entity(1, 0, 100, "", 0.9),
	}
	dets := []detection.RawDetection{det(100, 100, "", 0.9)}

	decisions := MatchDetections(dets, entities, testDiag, DefaultConfig())
	if !decisions[0].Matched || decisions[0].Entity != 1 {
		t.Errorf("Expected tie to resolve to entity 1, got %+v", decisions[0])
	}
}

func TestMatchDetections_TieBreakLowerDetectionIndex(t *testing.T) {
	// Two detections equidistant from one entity with equal confidence:
	// the earlier detection claims it
	entities := []EntityView{entity(1, 50, 50, "", 0.9)}
	dets := []detection.RawDetection{
		det(40, 50, "", 0.9),
		det(60, 50, "", 0.9),
	}

	decisions := MatchDetections(dets, entities, testDiag, DefaultConfig())
	if !decisions[0].Matched || decisions[0].Entity != 1 {
		t.Errorf("Detection 0 should claim the entity, got %+v", decisions[0])
	}
	if decisions[1].Matched {
		t.Errorf("Detection 1 should create, got match to %d", decisions[1].Entity)
	}
}

func TestMatchDetections_TieBreakHigherConfidence(t *testing.T) {
	// Equal scores, different confidence: the more confident detection wins
	entities := []EntityView{entity(1, 0, 0, "", 0.9)}
	dets := []detection.RawDetection{
		det(100, 0, "", 0.5),
		det(0, 100, "", 0.9),
	}

	decisions := MatchDetections(dets, entities, testDiag, DefaultConfig())
	if decisions[0].Matched {
		t.Errorf("Detection 0 should create, got match to %d", decisions[0].Entity)
	}
	if !decisions[1].Matched || decisions[1].Entity != 1 {
		t.Errorf("Detection 1 should match entity 1, got %+v", decisions[1])
	}
}

func TestMatchDetections_ZeroDiagFallsBack(t *testing.T) {
	// With no frame dimensions, the diagonal falls back to the configured
	// detector size, so nearby detections still match
	entities := []EntityView{entity(1, 100, 100, "", 0.9)}
	dets := []detection.RawDetection{det(120, 100, "", 0.9)}

	decisions := MatchDetections(dets, entities, 0, DefaultConfig())
	if !decisions[0].Matched {
		t.Error("Expected match with fallback diagonal")
	}
}

func TestSimilarity(t *testing.T) {
	a := detection.Point{X: 0, Y: 0}

	if s := similarity(a, a, testDiag); s != 1 {
		t.Errorf("Identical centers: expected 1, got %v", s)
	}
	if s := similarity(a, detection.Point{X: 1000, Y: 0}, testDiag); s != 0 {
		t.Errorf("Full diagonal apart: expected 0, got %v", s)
	}
	if s := similarity(a, detection.Point{X: 2000, Y: 2000}, testDiag); s != 0 {
		t.Errorf("Beyond diagonal: expected clamp to 0, got %v", s)
	}
	if s := similarity(a, detection.Point{X: 300, Y: 400}, testDiag); s != 0.5 {
		t.Errorf("500px apart: expected 0.5, got %v", s)
	}
}
