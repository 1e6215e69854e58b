package tracking

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-fortuna/internal/log"
	"github.com/teslashibe/go-fortuna/pkg/frame"
	"github.com/teslashibe/go-fortuna/pkg/tracking/detection"
)

// Frame is one encoded camera frame submitted to the pipeline.
type Frame struct {
	Data   []byte // JPEG bytes as received from the device
	ID     uint64 // device frame number, 0 when the device does not number frames
	Width  int    // reported width, informational
	Height int    // reported height, informational
}

// PipelineStats counts frames through the pipeline.
type PipelineStats struct {
	Submitted  uint64 `json:"submitted"`
	Processed  uint64 `json:"processed"`
	Dropped    uint64 `json:"dropped"`
	Skipped    uint64 `json:"skipped"`
	OutOfOrder uint64 `json:"out_of_order"`
}

// Pipeline connects a camera feed to a Coordinator. Frames are submitted
// from transport goroutines and processed one at a time by Run; when frames
// arrive faster than they can be processed, older waiting frames are
// replaced so the pipeline always works on the newest one.
type Pipeline struct {
	coord *Coordinator
	det   detection.Detector
	cfg   Config

	frames chan Frame

	submitted  atomic.Uint64
	processed  atomic.Uint64
	dropped    atomic.Uint64
	skipped    atomic.Uint64
	outOfOrder atomic.Uint64

	// lastGen is touched only by the Run goroutine.
	lastGen uint64

	mu         sync.Mutex
	onSnapshot func(generation uint64, entities []EntityView)
}

// NewPipeline returns a pipeline feeding det's detections into coord.
func NewPipeline(coord *Coordinator, det detection.Detector, cfg Config) *Pipeline {
	return &Pipeline{
		coord:  coord,
		det:    det,
		cfg:    cfg.sanitize(),
		frames: make(chan Frame, 1),
	}
}

// OnSnapshot registers a callback invoked after every processed frame (and
// after timeout sweeps that change state) with the generation and the
// current entity snapshot. The callback runs on the pipeline goroutine and
// should hand off quickly.
func (p *Pipeline) OnSnapshot(fn func(generation uint64, entities []EntityView)) {
	p.mu.Lock()
	p.onSnapshot = fn
	p.mu.Unlock()
}

// Submit hands a frame to the pipeline without ever blocking the caller.
// A frame still waiting in the mailbox is replaced by the newer one.
func (p *Pipeline) Submit(f Frame) {
	p.submitted.Add(1)
	for {
		select {
		case p.frames <- f:
			return
		default:
		}
		select {
		case <-p.frames:
			p.dropped.Add(1)
		default:
		}
	}
}

// Run processes frames until ctx is cancelled. It also ticks a timeout
// sweep so entities stuck in processing recover even when the camera feed
// stops.
func (p *Pipeline) Run(ctx context.Context) {
	interval := p.cfg.ProcessingTimeout / 2
	if interval <= 0 {
		interval = time.Second
	}
	sweep := time.NewTicker(interval)
	defer sweep.Stop()

	log.Info("tracking pipeline started",
		"detector_max_dim", p.cfg.DetectorImageMaxDimension,
		"classifier_max_dim", p.cfg.ClassifierImageMaxDimension,
		"sweep_interval", interval)

	for {
		select {
		case <-ctx.Done():
			log.Info("tracking pipeline stopped")
			return
		case f := <-p.frames:
			p.process(f)
		case <-sweep.C:
			if p.coord.SweepTimeouts() > 0 {
				p.publish(p.lastGen)
			}
		}
	}
}

func (p *Pipeline) process(f Frame) {
	var gen uint64
	switch {
	case f.ID == 0:
		gen = p.lastGen + 1
	case f.ID <= p.lastGen:
		p.outOfOrder.Add(1)
		log.Warn("dropping non-monotonic frame", "frame_id", f.ID, "last", p.lastGen)
		return
	default:
		gen = f.ID
	}

	norm, err := frame.Normalize(f.Data, p.cfg.DetectorImageMaxDimension, p.cfg.ClassifierImageMaxDimension)
	if err != nil {
		p.skipped.Add(1)
		log.Warn("skipping undecodable frame", "error", err)
		return
	}

	dets, err := p.det.Detect(norm.Detector)
	if err != nil {
		p.skipped.Add(1)
		log.Warn("detector error", "error", err)
		return
	}

	// People are not collectible objects; drop them before matching.
	objects := make([]detection.RawDetection, 0, len(dets))
	for _, d := range dets {
		if detection.IsPerson(d.Label) {
			continue
		}
		objects = append(objects, d)
	}

	p.lastGen = gen
	p.coord.Observe(Observation{
		Generation:      gen,
		Width:           norm.Width,
		Height:          norm.Height,
		ClassifierImage: norm.Classifier,
		Detections:      objects,
	})
	p.processed.Add(1)
	p.publish(gen)
}

func (p *Pipeline) publish(gen uint64) {
	p.mu.Lock()
	fn := p.onSnapshot
	p.mu.Unlock()
	if fn != nil {
		fn(gen, p.coord.Snapshot())
	}
}

// Stats returns current frame counters.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Dropped:    p.dropped.Load(),
		Skipped:    p.skipped.Load(),
		OutOfOrder: p.outOfOrder.Load(),
	}
}
