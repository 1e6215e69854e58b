// Package tracking maintains stable object identities across camera frames
// and coordinates their asynchronous classification into the five elements.
//
// The Coordinator owns the entity table. Each frame's detections are matched
// against known entities, unmatched detections become new entities, and
// entities re-seen while pending are dispatched to a classifier backend
// under a bounded concurrency budget. Late or duplicate classifier responses
// are discarded by dispatch generation, so state only ever moves forward.
package tracking

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/teslashibe/go-fortuna/internal/log"
	"github.com/teslashibe/go-fortuna/pkg/element"
	"github.com/teslashibe/go-fortuna/pkg/tracking/detection"
)

// ErrNotFound is returned when an operation names an entity that has been
// evicted or never existed.
var ErrNotFound = errors.New("tracking: entity not found")

// Classifier labels a classifier-ready JPEG with an element word or a short
// description. Implementations must honor ctx cancellation; the Coordinator
// calls Classify from its own goroutines.
type Classifier interface {
	Classify(ctx context.Context, image []byte, prompt string) (string, error)
}

// Observation is one normalized frame presented to the Coordinator: the
// detections found in it, the frame's generation number, and the
// classifier-ready image dispatched for any entity classified from it.
type Observation struct {
	Generation      uint64
	Width           int // detector image width in pixels
	Height          int // detector image height in pixels
	ClassifierImage []byte
	Detections      []detection.RawDetection
}

// Stats is a point-in-time counter snapshot for the dashboard and logs.
type Stats struct {
	Generation uint64 `json:"generation"`
	Entities   int    `json:"entities"`
	Processing int    `json:"processing"`
	Created    uint64 `json:"created"`
	Dispatched uint64 `json:"dispatched"`
	Completed  uint64 `json:"completed"`
	Failed     uint64 `json:"failed"`
	TimedOut   uint64 `json:"timed_out"`
	Stale      uint64 `json:"stale"`
	Evicted    uint64 `json:"evicted"`
	Retried    uint64 `json:"retried"`
}

// Coordinator tracks entities across frames and drives their classification.
// All methods are safe for concurrent use.
type Coordinator struct {
	cfg        Config
	classifier Classifier

	mu          sync.RWMutex
	entities    map[EntityID]*TrackedEntity
	nextID      EntityID
	generation  uint64
	processing  int
	stats       Stats
	onCollected func(EntityView)
}

// NewCoordinator returns a Coordinator using the given classifier backend.
func NewCoordinator(cfg Config, classifier Classifier) *Coordinator {
	return &Coordinator{
		cfg:        cfg.sanitize(),
		classifier: classifier,
		entities:   make(map[EntityID]*TrackedEntity),
	}
}

// OnCollected registers a callback fired once per entity whose classification
// completes with one of the five elements. The callback runs outside the
// Coordinator's lock, on the classification goroutine.
func (c *Coordinator) OnCollected(fn func(EntityView)) {
	c.mu.Lock()
	c.onCollected = fn
	c.mu.Unlock()
}

// dispatchJob carries everything a classification goroutine needs so it
// never touches the entity table directly.
type dispatchJob struct {
	id     EntityID
	gen    uint64
	image  []byte
	prompt string
}

// Observe ingests one frame's detections. It updates matched entities,
// creates entities for unmatched detections, force-fails classifications
// stuck past the processing timeout, evicts entities unseen for longer than
// the eviction window, and dispatches pending re-seen entities to the
// classifier within the concurrency budget.
//
// Generations must not decrease between calls; a frame older than the
// current generation is dropped.
func (c *Coordinator) Observe(obs Observation) {
	now := time.Now()

	c.mu.Lock()
	if obs.Generation < c.generation {
		c.mu.Unlock()
		log.Warn("dropping out-of-order frame", "generation", obs.Generation, "current", c.generation)
		return
	}
	c.generation = obs.Generation

	views := make([]EntityView, 0, len(c.entities))
	for _, e := range c.entities {
		views = append(views, e.view())
	}
	diag := 0.0
	if obs.Width > 0 && obs.Height > 0 {
		diag = math.Sqrt(float64(obs.Width*obs.Width + obs.Height*obs.Height))
	}
	decisions := MatchDetections(obs.Detections, views, diag, c.cfg)

	var rematched []EntityID
	for _, dec := range decisions {
		d := obs.Detections[dec.Detection]
		if dec.Matched {
			e := c.entities[dec.Entity]
			e.Box = d.Box
			e.Center = d.Center
			if d.Label != "" {
				e.Label = d.Label
				e.Confidence = d.Confidence
			}
			e.LastSeenGeneration = obs.Generation
			rematched = append(rematched, e.ID)
			continue
		}
		c.nextID++
		c.entities[c.nextID] = &TrackedEntity{
			ID:                 c.nextID,
			Box:                d.Box,
			Center:             d.Center,
			Label:              d.Label,
			Confidence:         d.Confidence,
			State:              StatePending,
			LastSeenGeneration: obs.Generation,
			CreatedAt:          now,
		}
		c.stats.Created++
		log.Debug("entity created", "entity", c.nextID, "label", d.Label, "generation", obs.Generation)
	}

	c.sweepTimeoutsLocked(now)
	c.evictLocked()

	// Dispatch order under a saturated budget is ascending entity ID.
	sort.Slice(rematched, func(i, j int) bool { return rematched[i] < rematched[j] })
	var jobs []dispatchJob
	for _, id := range rematched {
		if c.processing >= c.cfg.MaxConcurrentClassifications {
			break
		}
		e := c.entities[id]
		if e == nil || e.State != StatePending {
			continue
		}
		e.State = StateProcessing
		e.DispatchGeneration++
		e.DispatchedAt = now
		c.processing++
		c.stats.Dispatched++
		jobs = append(jobs, dispatchJob{id: e.ID, gen: e.DispatchGeneration, image: obs.ClassifierImage, prompt: c.cfg.Prompt})
	}
	c.mu.Unlock()

	for _, job := range jobs {
		log.Debug("dispatching classification", "entity", job.id, "dispatch_gen", job.gen)
		go c.runClassification(job)
	}
}

func (c *Coordinator) runClassification(job dispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ProcessingTimeout)
	defer cancel()
	output, err := c.classifier.Classify(ctx, job.image, job.prompt)
	c.OnClassificationResult(job.id, job.gen, output, err)
}

// OnClassificationResult applies one classifier response. The response is
// discarded as stale unless the entity still exists, dispatchGen matches its
// current dispatch generation, and it is still processing. Exactly one
// response per dispatch can therefore ever land.
func (c *Coordinator) OnClassificationResult(id EntityID, dispatchGen uint64, output string, err error) {
	c.mu.Lock()
	e, ok := c.entities[id]
	if !ok || e.DispatchGeneration != dispatchGen || e.State != StateProcessing {
		c.stats.Stale++
		c.mu.Unlock()
		log.Debug("discarding stale classification result", "entity", id, "dispatch_gen", dispatchGen)
		return
	}
	c.processing--

	if err != nil {
		e.State = StateFailed
		e.LastError = err.Error()
		c.stats.Failed++
		c.mu.Unlock()
		log.Warn("classification failed", "entity", id, "error", err)
		return
	}

	el := element.FromLabel(output)
	e.State = StateCompleted
	e.Element = el
	e.RawOutput = output
	e.LastError = ""
	c.stats.Completed++
	var fire func(EntityView)
	var view EntityView
	if el != element.Other {
		fire = c.onCollected
		view = e.view()
	}
	c.mu.Unlock()

	log.Info("entity classified", "entity", id, "element", el, "output", output)
	if fire != nil {
		fire(view)
	}
}

// Retry moves a failed entity back to pending so its next sighting
// re-dispatches it. Retrying an entity in any other state is a no-op.
func (c *Coordinator) Retry(id EntityID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entities[id]
	if !ok {
		return ErrNotFound
	}
	if e.State != StateFailed {
		return nil
	}
	e.State = StatePending
	e.LastError = ""
	c.stats.Retried++
	log.Info("entity queued for retry", "entity", id)
	return nil
}

// SweepTimeouts force-fails entities stuck in processing past the timeout.
// The pipeline calls this on a ticker so stuck entities recover even when
// no frames arrive. Returns the number of entities failed.
func (c *Coordinator) SweepTimeouts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepTimeoutsLocked(time.Now())
}

func (c *Coordinator) sweepTimeoutsLocked(now time.Time) int {
	n := 0
	for _, e := range c.entities {
		if e.State != StateProcessing || now.Sub(e.DispatchedAt) < c.cfg.ProcessingTimeout {
			continue
		}
		e.State = StateFailed
		e.LastError = "classification timed out"
		// Invalidate the in-flight dispatch so its eventual response is stale.
		e.DispatchGeneration++
		c.processing--
		c.stats.TimedOut++
		c.stats.Failed++
		n++
		log.Warn("classification timed out", "entity", e.ID, "timeout", c.cfg.ProcessingTimeout)
	}
	return n
}

func (c *Coordinator) evictLocked() {
	var toDelete []EntityID
	for id, e := range c.entities {
		if c.generation-e.LastSeenGeneration > c.cfg.EvictionWindow {
			toDelete = append(toDelete, id)
		}
	}
	for _, id := range toDelete {
		e := c.entities[id]
		if e.State == StateProcessing {
			c.processing--
		}
		delete(c.entities, id)
		c.stats.Evicted++
		log.Debug("entity evicted", "entity", id, "last_seen", e.LastSeenGeneration, "generation", c.generation)
	}
}

// Snapshot returns a copy of every tracked entity, ordered by ID.
func (c *Coordinator) Snapshot() []EntityView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	views := make([]EntityView, 0, len(c.entities))
	for _, e := range c.entities {
		views = append(views, e.view())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// Entity returns a copy of one entity by ID.
func (c *Coordinator) Entity(id EntityID) (EntityView, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entities[id]
	if !ok {
		return EntityView{}, ErrNotFound
	}
	return e.view(), nil
}

// Stats returns current counters.
func (c *Coordinator) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Generation = c.generation
	s.Entities = len(c.entities)
	s.Processing = c.processing
	return s
}
