// Package detection provides per-frame object detection for the tracking
// pipeline. Detectors are stateless across frames: each call describes one
// frame only, and identity is assigned later by the matcher.
package detection

// Point is a pixel coordinate in the detector image.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Box is a pixel-space bounding box in the detector image.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Center returns the center point of the box.
func (b Box) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Area returns the area of the box in pixels.
func (b Box) Area() int {
	return b.W * b.H
}

// Empty reports whether the box has no extent.
func (b Box) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// RawDetection is one candidate object found in a single frame. It carries
// no identity and is discarded after matching against tracked entities.
type RawDetection struct {
	Confidence float64 // 0-1
	Label      string  // detector label hint, "" when unknown
	Center     Point   // pixel center in the detector image
	Box        Box     // optional; zero when the backend reports centers only
}

// Detector is the interface for object detection backends.
type Detector interface {
	// Detect finds objects in one frame and returns their positions.
	// Implementations must not retain state between calls.
	Detect(jpeg []byte) ([]RawDetection, error)

	// Close releases resources.
	Close() error
}

// IsPerson returns true if the label names a person. The pipeline filters
// people out before matching; they are not collectible objects.
func IsPerson(label string) bool {
	return label == "person"
}
