// fortuna: Coordinator service for the element-collecting camera app
// Accepts WebSocket connections from capture devices, tracks and classifies
// the objects in their frames, and serves the live dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-fortuna/internal/config"
	"github.com/teslashibe/go-fortuna/internal/log"
	"github.com/teslashibe/go-fortuna/pkg/classify"
	"github.com/teslashibe/go-fortuna/pkg/collection"
	"github.com/teslashibe/go-fortuna/pkg/hub"
	"github.com/teslashibe/go-fortuna/pkg/protocol"
	"github.com/teslashibe/go-fortuna/pkg/tracking"
	"github.com/teslashibe/go-fortuna/pkg/tracking/detection"
	"github.com/teslashibe/go-fortuna/pkg/web"
)

var (
	version   = "1.0.0"
	port      = flag.String("port", config.Port(), "HTTP server port")
	storePath = flag.String("store", config.StorePath(), "collection journal path")
	backend   = flag.String("classifier", config.ClassifierBackend(), "classifier backend: gemini, openai, cloudvision, mock")
	modelPath = flag.String("model", "", "YOLO ONNX model path (overrides FORTUNA_YOLO_MODEL)")
	debug     = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	fmt.Println()
	fmt.Println("🔮 Fortuna Coordinator v" + version)
	fmt.Println("   Five-element object collection service")
	fmt.Println()

	detCfg := detection.DefaultYOLOConfig()
	if *modelPath != "" {
		detCfg.ModelPath = *modelPath
	} else if envPath := config.YOLOModelPath(); envPath != "" {
		detCfg.ModelPath = envPath
	}
	if _, err := os.Stat(detCfg.ModelPath); err != nil {
		fmt.Printf("❌ YOLO model not found: %s\n", detCfg.ModelPath)
		fmt.Println("   Download yolov8n.onnx and point -model (or FORTUNA_YOLO_MODEL) at it")
		os.Exit(1)
	}

	classifier, err := buildClassifier(*backend)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	store, err := collection.NewJSONStore(*storePath)
	if err != nil {
		fmt.Printf("❌ Failed to open collection store: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("   Classifier: %s\n", classifier.Name())
	fmt.Printf("   Detector:   %s\n", detCfg.ModelPath)
	fmt.Printf("   Journal:    %s (%d records)\n", *storePath, store.Count())
	fmt.Println()

	dash := web.NewServer(*port)
	dash.Classifier = classifier.Name()
	dash.Collection = store

	devices := hub.NewHub()

	svc := &service{
		classifier: classifier,
		store:      store,
		devices:    devices,
		dash:       dash,
		detCfg:     detCfg,
		trackCfg:   tracking.ConfigFromEnv(),
		sessions:   make(map[string]*session),
	}

	devices.OnFrame(svc.handleFrame)
	devices.OnDisconnect(svc.handleDisconnect)
	dash.OnRetry = svc.retry
	dash.OnStats = svc.stats

	// Device sockets and fleet API share the dashboard listener
	app := dash.App()
	devices.RegisterRoutes(app)
	devices.RegisterAPIRoutes(app.Group("/api"))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"version":   version,
			"devices":   devices.DeviceCount(),
			"collected": store.Count(),
		})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		stats := devices.GetStats()
		return c.SendString(fmt.Sprintf(`# HELP fortuna_devices Connected device count
# TYPE fortuna_devices gauge
fortuna_devices %d

# HELP fortuna_frames_received Total camera frames received
# TYPE fortuna_frames_received counter
fortuna_frames_received %d

# HELP fortuna_messages_received Total messages received
# TYPE fortuna_messages_received counter
fortuna_messages_received %d

# HELP fortuna_messages_sent Total messages sent
# TYPE fortuna_messages_sent counter
fortuna_messages_sent %d

# HELP fortuna_collected_total Total collection records journaled
# TYPE fortuna_collected_total counter
fortuna_collected_total %d
`, stats.DeviceCount, stats.FramesReceived, stats.MessagesReceived, stats.MessagesSent, store.Count()))
	})

	dash.StartAsync()

	fmt.Printf("🚀 Listening on :%s\n", *port)
	fmt.Printf("   Dashboard: http://localhost:%s/\n", *port)
	fmt.Printf("   Devices:   ws://localhost:%s/ws/device\n", *port)
	fmt.Printf("   Health:    http://localhost:%s/health\n", *port)
	fmt.Println()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n👋 Shutting down...")

	svc.close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := dash.ShutdownWithContext(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	fmt.Println("✅ Goodbye!")
}

// buildClassifier constructs the configured classification backend.
func buildClassifier(name string) (classify.Classifier, error) {
	switch name {
	case "gemini":
		return classify.NewGemini(classify.WithAPIKey(config.GeminiAPIKey()))
	case "openai":
		return classify.NewOpenAI(classify.WithAPIKey(config.OpenAIAPIKey()))
	case "cloudvision":
		return classify.NewCloudVision(context.Background())
	case "mock":
		return classify.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", name)
	}
}

// session is the tracking state for one connected device: its own
// coordinator, pipeline, and detector, torn down on disconnect.
type session struct {
	device string
	coord  *tracking.Coordinator
	pipe   *tracking.Pipeline
	cancel context.CancelFunc
}

// service routes device frames into per-device tracking sessions and
// fans results back out to the device and the dashboard.
type service struct {
	classifier classify.Classifier
	store      collection.Store
	devices    *hub.Hub
	dash       *web.Server
	detCfg     detection.YOLOConfig
	trackCfg   tracking.Config

	mu       sync.Mutex
	sessions map[string]*session
}

// handleFrame feeds one device frame into its session, creating the
// session on first contact.
func (s *service) handleFrame(deviceID string, frame *protocol.FrameData) {
	jpeg, err := frame.DecodeFrameData()
	if err != nil {
		log.Warn("bad frame payload", "device", deviceID, "error", err)
		return
	}

	sess := s.session(deviceID)
	if sess == nil {
		return
	}

	sess.pipe.Submit(tracking.Frame{
		Data:   jpeg,
		ID:     frame.FrameID,
		Width:  frame.Width,
		Height: frame.Height,
	})
	s.dash.PublishFrame(deviceID, jpeg)
}

// session returns the device's session, starting one if none exists.
func (s *service) session(deviceID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[deviceID]; ok {
		return sess
	}

	// Each session gets its own detector: gocv nets are not safe for
	// concurrent use across pipelines.
	det, err := detection.NewYOLO(s.detCfg)
	if err != nil {
		log.Error("detector init failed", "device", deviceID, "error", err)
		return nil
	}

	coord := tracking.NewCoordinator(s.trackCfg, s.classifier)
	coord.OnCollected(func(v tracking.EntityView) {
		s.collected(deviceID, v)
	})

	pipe := tracking.NewPipeline(coord, det, s.trackCfg)
	pipe.OnSnapshot(func(generation uint64, entities []tracking.EntityView) {
		s.snapshot(deviceID, generation, entities)
	})

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{device: deviceID, coord: coord, pipe: pipe, cancel: cancel}
	s.sessions[deviceID] = sess

	go func() {
		pipe.Run(ctx)
		det.Close()
	}()

	log.Info("session started", "device", deviceID)
	s.dash.AddLog("info", fmt.Sprintf("%s: session started", deviceID))
	return sess
}

// collected journals a completed classification and pushes it to the
// device and the dashboard.
func (s *service) collected(deviceID string, v tracking.EntityView) {
	rec := collection.NewRecord(deviceID, uint64(v.ID), v.Element, v.Label, v.Confidence)
	if err := s.store.Append(rec); err != nil {
		log.Error("journal append failed", "device", deviceID, "error", err)
	}

	err := s.devices.SendCollected(deviceID, protocol.CollectedData{
		RecordID:   rec.ID,
		Entity:     uint64(v.ID),
		Element:    string(v.Element),
		Label:      v.Label,
		Confidence: v.Confidence,
	})
	if err != nil {
		log.Debug("collected not delivered", "device", deviceID, "error", err)
	}

	s.dash.AddLog("collected", fmt.Sprintf("%s: %q classified as %s", deviceID, v.Label, v.Element))
}

// snapshot pushes one observe round's entity state to the device and
// the dashboard.
func (s *service) snapshot(deviceID string, generation uint64, entities []tracking.EntityView) {
	if err := s.devices.SendAnchors(deviceID, generation, toAnchors(entities)); err != nil {
		log.Debug("anchors not delivered", "device", deviceID, "error", err)
	}
	s.dash.PublishAnchors(deviceID, generation, entities)
}

// retry requeues a failed entity on behalf of the dashboard.
func (s *service) retry(deviceID string, entity uint64) error {
	s.mu.Lock()
	sess := s.sessions[deviceID]
	s.mu.Unlock()

	if sess == nil {
		return fmt.Errorf("device %s: %w", deviceID, tracking.ErrNotFound)
	}
	return sess.coord.Retry(tracking.EntityID(entity))
}

// stats reports per-device coordinator counters for /api/status.
func (s *service) stats() map[string]tracking.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]tracking.Stats, len(s.sessions))
	for id, sess := range s.sessions {
		out[id] = sess.coord.Stats()
	}
	return out
}

// handleDisconnect tears down the device's session.
func (s *service) handleDisconnect(deviceID string) {
	s.mu.Lock()
	sess := s.sessions[deviceID]
	delete(s.sessions, deviceID)
	s.mu.Unlock()

	if sess == nil {
		return
	}
	sess.cancel()
	s.dash.RemoveDevice(deviceID)

	log.Info("session ended", "device", deviceID)
	s.dash.AddLog("info", fmt.Sprintf("%s: device disconnected", deviceID))
}

// close stops every session.
func (s *service) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		sess.cancel()
		delete(s.sessions, id)
	}
}

// toAnchors converts tracked entity views into the compact wire shape
// sent to devices.
func toAnchors(entities []tracking.EntityView) []protocol.Anchor {
	anchors := make([]protocol.Anchor, 0, len(entities))
	for _, e := range entities {
		anchors = append(anchors, protocol.Anchor{
			ID:         uint64(e.ID),
			X:          e.Box.X,
			Y:          e.Box.Y,
			Width:      e.Box.W,
			Height:     e.Box.H,
			Label:      e.Label,
			Confidence: e.Confidence,
			State:      string(e.State),
			Element:    string(e.Element),
		})
	}
	return anchors
}
