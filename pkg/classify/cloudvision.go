package classify

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

const backendCloudVision = "cloudvision"

// CloudVision classifies frames with Google Cloud Vision label detection.
// The API takes no prompt; confident label descriptions are joined into a
// phrase that the element mapper scans the same way it scans model answers.
type CloudVision struct {
	svc        *vision.Service
	maxResults int64
	minScore   float64
	logger     *slog.Logger
}

// NewCloudVision creates a Cloud Vision backend. Credentials resolve in
// order: service account file, API key, Application Default Credentials.
func NewCloudVision(ctx context.Context, opts ...Option) (*CloudVision, error) {
	cfg := DefaultConfig()
	// Cloud Vision talks to the Google endpoint unless a test overrides it
	cfg.BaseURL = ""
	cfg.Apply(opts...)

	var copts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		copts = append(copts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		copts = append(copts, option.WithAPIKey(cfg.APIKey))
	default:
		client, err := google.DefaultClient(ctx, vision.CloudVisionScope)
		if err != nil {
			return nil, WrapError(backendCloudVision, fmt.Errorf("%w: default credentials: %v", ErrBackendUnavailable, err))
		}
		copts = append(copts, option.WithHTTPClient(client))
	}
	if cfg.BaseURL != "" {
		copts = append(copts, option.WithEndpoint(cfg.BaseURL))
	}

	svc, err := vision.NewService(ctx, copts...)
	if err != nil {
		return nil, WrapError(backendCloudVision, fmt.Errorf("create service: %w", err))
	}

	return &CloudVision{
		svc:        svc,
		maxResults: 8,
		minScore:   0.5,
		logger:     cfg.Logger.With("component", "classify.cloudvision"),
	}, nil
}

// Name identifies the backend.
func (cv *CloudVision) Name() string { return backendCloudVision }

// Classify runs label detection on the frame. The prompt is ignored.
func (cv *CloudVision) Classify(ctx context.Context, image []byte, prompt string) (string, error) {
	start := time.Now()

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image: &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{
				Type:       "LABEL_DETECTION",
				MaxResults: cv.maxResults,
			}},
		}},
	}

	resp, err := cv.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", WrapError(backendCloudVision, err)
	}
	if len(resp.Responses) == 0 {
		return "", WrapError(backendCloudVision, ErrNoOutput)
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return "", WrapError(backendCloudVision, fmt.Errorf("annotate: %s", r.Error.Message))
	}

	var labels []string
	for _, a := range r.LabelAnnotations {
		if a.Score < cv.minScore {
			continue
		}
		labels = append(labels, a.Description)
	}
	if len(labels) == 0 {
		// No confident labels is an uncertain answer, not a failure
		return "uncertain", nil
	}

	answer := strings.Join(labels, ", ")
	cv.logger.Debug("label detection answer",
		"labels", len(labels),
		"latency_ms", time.Since(start).Milliseconds(),
		"answer", answer)
	return answer, nil
}

// Verify CloudVision implements Classifier at compile time.
var _ Classifier = (*CloudVision)(nil)
