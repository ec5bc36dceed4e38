package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"budgetbuddy/internal/log"
)

const (
	textDetection = "TEXT_DETECTION"

	defaultRecognizeTimeout = 30 * time.Second
	imageRefPrefixLen       = 100
)

var (
	// ErrNotConfigured is returned by NewVisionClient without an API key.
	ErrNotConfigured = errors.New("receipt OCR not configured")
	// ErrEmptyImage is returned when no image payload was supplied.
	ErrEmptyImage = errors.New("image required")
)

// Recognizer reads a base64 encoded receipt image.
type Recognizer interface {
	Recognize(ctx context.Context, image string) (Result, error)
}

// VisionClient calls the Google Cloud Vision TEXT_DETECTION feature and
// runs the text through Extract.
type VisionClient struct {
	svc     *vision.Service
	timeout time.Duration
	logger  *log.Logger
}

var _ Recognizer = (*VisionClient)(nil)

// NewVisionClient creates a client authenticated with an API key. Extra
// options are appended, which lets tests point the client at a local server.
func NewVisionClient(ctx context.Context, apiKey string, logger *log.Logger, opts ...option.ClientOption) (*VisionClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" && len(opts) == 0 {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = log.Discard()
	}

	all := make([]option.ClientOption, 0, len(opts)+1)
	if apiKey != "" {
		all = append(all, option.WithAPIKey(apiKey))
	}
	all = append(all, opts...)

	svc, err := vision.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	return &VisionClient{
		svc:     svc,
		timeout: defaultRecognizeTimeout,
		logger:  logger.WithComponent(log.ComponentReceipt),
	}, nil
}

// Recognize sends one image to Vision. A response without text is not an
// error: it yields an empty amount and the fallback label.
func (c *VisionClient) Recognize(ctx context.Context, image string) (Result, error) {
	image = stripDataURL(image)
	if image == "" {
		return Result{}, ErrEmptyImage
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: image},
			Features: []*vision.Feature{{Type: textDetection}},
		}},
	}
	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return Result{}, fmt.Errorf("annotate image: %w", err)
	}
	if len(resp.Responses) == 0 {
		return ExtractFromText(""), nil
	}

	first := resp.Responses[0]
	if first.Error != nil && first.Error.Code != 0 {
		return Result{}, fmt.Errorf("annotate image: vision error %d: %s", first.Error.Code, first.Error.Message)
	}

	text := ""
	if len(first.TextAnnotations) > 0 {
		text = first.TextAnnotations[0].Description
	}
	result := ExtractFromText(text)

	c.logger.DebugContext(ctx, "Receipt recognized",
		"text_length", len(text),
		"amount_found", result.Amount != nil,
		log.FieldDuration, time.Since(start).Milliseconds())
	return result, nil
}

// ImageRef returns the short data URL stored alongside a transaction in
// place of the full image.
func ImageRef(image string) string {
	image = stripDataURL(image)
	if image == "" {
		return ""
	}
	if len(image) > imageRefPrefixLen {
		image = image[:imageRefPrefixLen]
	}
	return "data:image/jpeg;base64," + image + "..."
}

// stripDataURL accepts both raw base64 and "data:<mime>;base64,<payload>".
func stripDataURL(image string) string {
	image = strings.TrimSpace(image)
	if strings.HasPrefix(image, "data:") {
		if i := strings.Index(image, ","); i >= 0 {
			return image[i+1:]
		}
	}
	return image
}
