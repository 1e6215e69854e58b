// Package frame normalizes raw camera frames into detector-ready and
// classifier-ready images. Normalization is pure and stateless: the same
// input always produces the same output, and failures never mutate
// anything downstream (the frame is simply skipped).
package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/png" // allow PNG input from the classify CLI

	xdraw "golang.org/x/image/draw"
)

// jpegQuality matches the quality the classifier backends expect.
const jpegQuality = 85

// Normalized holds the two renditions of one camera frame.
type Normalized struct {
	Detector   []byte // JPEG capped at the detector max dimension
	Classifier []byte // JPEG capped at the classifier max dimension
	Width      int    // pixel width of Detector
	Height     int    // pixel height of Detector
}

// Normalize decodes an incoming frame and produces aspect-preserved
// downscales for the detector and the classifier. Frames already at or
// under a cap pass through without re-encoding.
func Normalize(data []byte, detectorMax, classifierMax int) (*Normalized, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty frame %dx%d", w, h)
	}

	out := &Normalized{}

	det := Downscale(img, detectorMax)
	db := det.Bounds()
	out.Width, out.Height = db.Dx(), db.Dy()
	if det == img && format == "jpeg" {
		out.Detector = data
	} else {
		out.Detector, err = EncodeJPEG(det)
		if err != nil {
			return nil, fmt.Errorf("encode detector image: %w", err)
		}
	}

	cls := Downscale(img, classifierMax)
	if cls == img && format == "jpeg" {
		out.Classifier = data
	} else if cls == det {
		out.Classifier = out.Detector
	} else {
		out.Classifier, err = EncodeJPEG(cls)
		if err != nil {
			return nil, fmt.Errorf("encode classifier image: %w", err)
		}
	}

	return out, nil
}

// Downscale returns src scaled so its longest side is at most maxDim,
// preserving aspect ratio. Images already within the cap are returned
// unchanged. maxDim <= 0 means no cap.
func Downscale(src image.Image, maxDim int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	longest := w
	if h > longest {
		longest = h
	}
	if maxDim <= 0 || longest <= maxDim {
		return src
	}

	scale := float64(maxDim) / float64(longest)
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)
	return dst
}

// EncodeJPEG encodes an image as JPEG at the standard quality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
