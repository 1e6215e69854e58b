package tracking

import (
	"time"

	"github.com/teslashibe/go-fortuna/internal/config"
)

// Config holds all tunable parameters for the tracking coordinator.
type Config struct {
	// Identity matching
	MatchThreshold       float64 // minimum similarity (0-1) to re-match a detection to an entity
	LabelConfidenceFloor float64 // label hints below this confidence are treated as unknown

	// Classification dispatch
	MaxConcurrentClassifications int           // upper bound on in-flight classifier calls
	ProcessingTimeout            time.Duration // force-fail entities stuck in processing past this
	Prompt                       string        // classifier prompt, "" uses the backend default

	// Eviction
	EvictionWindow uint64 // generations an entity may go unseen before removal

	// Frame normalization
	DetectorImageMaxDimension   int // longest side of the detector input image
	ClassifierImageMaxDimension int // longest side of the classifier image
}

// DefaultConfig returns the recommended configuration for live camera feeds.
func DefaultConfig() Config {
	return Config{
		// Matching - tight enough that neighboring objects keep separate identities
		MatchThreshold:       0.82,
		LabelConfidenceFloor: 0.45,

		// Dispatch - vision APIs are slow, keep the window small
		MaxConcurrentClassifications: 2,
		ProcessingTimeout:            12 * time.Second,

		// Eviction - roughly 3 seconds of absence at 10 fps
		EvictionWindow: 30,

		// Normalization
		DetectorImageMaxDimension:   960,
		ClassifierImageMaxDimension: 512,
	}
}

// ConservativeConfig returns a configuration for slow or rate-limited
// classifier backends: one request at a time, a longer timeout, and entities
// kept alive longer so results still land after brief occlusions.
func ConservativeConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxConcurrentClassifications = 1
	cfg.ProcessingTimeout = 30 * time.Second
	cfg.EvictionWindow = 60
	return cfg
}

// ConfigFromEnv returns DefaultConfig with any FORTUNA_* overrides applied.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.MatchThreshold = config.GetenvFloat("FORTUNA_MATCH_THRESHOLD", cfg.MatchThreshold)
	cfg.LabelConfidenceFloor = config.GetenvFloat("FORTUNA_LABEL_CONFIDENCE_FLOOR", cfg.LabelConfidenceFloor)
	cfg.MaxConcurrentClassifications = config.GetenvInt("FORTUNA_MAX_CONCURRENT", cfg.MaxConcurrentClassifications)
	cfg.ProcessingTimeout = config.GetenvDuration("FORTUNA_PROCESSING_TIMEOUT", cfg.ProcessingTimeout)
	if n := config.GetenvInt("FORTUNA_EVICTION_WINDOW", int(cfg.EvictionWindow)); n > 0 {
		cfg.EvictionWindow = uint64(n)
	}
	cfg.DetectorImageMaxDimension = config.GetenvInt("FORTUNA_DETECTOR_MAX_DIM", cfg.DetectorImageMaxDimension)
	cfg.ClassifierImageMaxDimension = config.GetenvInt("FORTUNA_CLASSIFIER_MAX_DIM", cfg.ClassifierImageMaxDimension)
	return cfg
}

// sanitize clamps broken values so a zero Config still behaves.
func (c Config) sanitize() Config {
	def := DefaultConfig()
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		c.MatchThreshold = def.MatchThreshold
	}
	if c.MaxConcurrentClassifications < 1 {
		c.MaxConcurrentClassifications = 1
	}
	if c.ProcessingTimeout <= 0 {
		c.ProcessingTimeout = def.ProcessingTimeout
	}
	if c.EvictionWindow == 0 {
		c.EvictionWindow = def.EvictionWindow
	}
	if c.DetectorImageMaxDimension <= 0 {
		c.DetectorImageMaxDimension = def.DetectorImageMaxDimension
	}
	if c.ClassifierImageMaxDimension <= 0 {
		c.ClassifierImageMaxDimension = def.ClassifierImageMaxDimension
	}
	return c
}
