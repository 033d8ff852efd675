// Package detector - Food recognition pipeline.
//
// A Recognizer turns an image into an ordered list of detections:
// preprocess, run the model, decode the raw rows and suppress overlaps.
package detector

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-foodvision/config"
	"github.com/nvr-ai/go-foodvision/images"
	"github.com/nvr-ai/go-foodvision/inference"
	"github.com/nvr-ai/go-foodvision/models"
	"github.com/nvr-ai/go-foodvision/models/labels"
	"github.com/nvr-ai/go-foodvision/models/model"
	"github.com/nvr-ai/go-foodvision/models/model/preprocess"
	"github.com/nvr-ai/go-foodvision/models/postprocess"
)

var (
	// ErrClosed is returned by Detect after Close.
	ErrClosed = errors.New("recognizer closed")
	// ErrInference is returned when the runtime fails or panics during a pass.
	ErrInference = errors.New("inference failed")
)

// inferenceError matches both ErrInference and the runner's own error.
type inferenceError struct {
	cause error
}

func (e *inferenceError) Error() string {
	return ErrInference.Error() + ": " + e.cause.Error()
}

func (e *inferenceError) Unwrap() []error {
	return []error{ErrInference, e.cause}
}

// Option configures a Recognizer.
type Option func(*options)

type options struct {
	runner inference.Runner
	log    logrus.FieldLogger
	labels *labels.Table
}

// WithRunner replaces the ONNX Runtime runner.
func WithRunner(r inference.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithLogger sets the logger. Defaults to logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithLabels sets the label table instead of loading it from the configured path.
func WithLabels(t *labels.Table) Option {
	return func(o *options) { o.labels = t }
}

// Recognizer detects food items in images.
//
// A Recognizer is safe for concurrent use. Each call allocates its own
// tensors; the runner serializes access to the underlying session.
type Recognizer struct {
	model      model.Model
	runner     inference.Runner
	log        logrus.FieldLogger
	tensorSize int

	mu     sync.RWMutex
	closed bool
}

// New creates a Recognizer for the model described by cfg.
//
// Arguments:
//   - cfg: The recognizer configuration.
//   - opts: Optional overrides for the runner, logger and labels.
//
// Returns:
//   - *Recognizer: A recognizer ready for Detect.
//   - error: An error if the configuration is invalid or the model cannot be loaded.
func New(cfg config.Config, opts ...Option) (*Recognizer, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if o.labels == nil {
		o.labels = labels.LoadOrDefault(cfg.Labels.Path, o.log)
	}
	if o.labels.Len() != cfg.Model.NumClasses {
		o.log.WithFields(logrus.Fields{
			"labels":  o.labels.Len(),
			"classes": cfg.Model.NumClasses,
		}).Warn("label count does not match model classes")
	}

	m, err := models.NewModel(cfg.ModelArgs(o.labels))
	if err != nil {
		return nil, errors.Wrap(err, "create model")
	}

	shape := m.InputShape()
	size := 1
	for _, d := range shape {
		size *= int(d)
	}

	runner := o.runner
	if runner == nil {
		runner, err = inference.NewONNXRunner(cfg.ONNXConfig(shape), o.log)
		if err != nil {
			return nil, errors.Wrap(err, "load model")
		}
	}

	o.log.WithFields(logrus.Fields{
		"model":  m.Options().Name,
		"path":   m.Options().Path,
		"labels": o.labels.Len(),
	}).Info("recognizer ready")

	return &Recognizer{
		model:      m,
		runner:     runner,
		log:        o.log,
		tensorSize: size,
	}, nil
}

// Model returns the underlying model.
func (r *Recognizer) Model() model.Model {
	return r.model
}

// Stats returns the runner latency counters, if the runner tracks them.
func (r *Recognizer) Stats() (inference.Stats, bool) {
	s, ok := r.runner.(interface{ Stats() inference.Stats })
	if !ok {
		return inference.Stats{}, false
	}
	return s.Stats(), true
}

// Detect finds food items in img.
//
// An image without food yields an empty slice and a nil error. The context
// is checked before inference starts; a started pass runs to completion.
//
// Arguments:
//   - ctx: The context for the call.
//   - img: The image to analyze.
//
// Returns:
//   - []postprocess.Detection: At most MaxDetections detections, highest score first.
//   - error: ErrClosed, preprocess.ErrInvalidInput, ErrInference or a context error.
func (r *Recognizer) Detect(ctx context.Context, img image.Image) (dets []postprocess.Detection, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("panic", p).Error("recovered from inference panic")
			dets, err = nil, errors.Wrap(ErrInference, fmt.Sprintf("panic: %v", p))
		}
	}()

	start := time.Now()

	input := make([]float32, r.tensorSize)
	if err := r.model.PreProcess(img, input); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output, err := r.runner.Run(ctx, input)
	if err != nil {
		return nil, &inferenceError{cause: err}
	}

	bounds := img.Bounds()
	dets, err = r.model.PostProcess(output, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, errors.Wrap(err, "postprocess")
	}
	if dets == nil {
		dets = []postprocess.Detection{}
	}

	r.log.WithFields(logrus.Fields{
		"detections":  len(dets),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("detect")

	return dets, nil
}

// DetectBytes decodes an encoded JPEG, PNG, GIF or WebP image and runs Detect.
//
// Arguments:
//   - ctx: The context for the call.
//   - data: The encoded image.
//
// Returns:
//   - []postprocess.Detection: The detections.
//   - image.Image: The decoded image.
//   - error: preprocess.ErrInvalidInput if the data cannot be decoded, or any Detect error.
func (r *Recognizer) DetectBytes(ctx context.Context, data []byte) ([]postprocess.Detection, image.Image, error) {
	img, err := images.Decode(data)
	if err != nil {
		return nil, nil, errors.Wrap(preprocess.ErrInvalidInput, err.Error())
	}
	dets, err := r.Detect(ctx, img)
	return dets, img, err
}

// DetectFile loads the image at path and runs Detect.
//
// Arguments:
//   - ctx: The context for the call.
//   - path: The image file.
//
// Returns:
//   - []postprocess.Detection: The detections.
//   - image.Image: The loaded image.
//   - error: An error if the file cannot be loaded, or any Detect error.
func (r *Recognizer) DetectFile(ctx context.Context, path string) ([]postprocess.Detection, image.Image, error) {
	img, err := images.Load(path)
	if err != nil {
		return nil, nil, err
	}
	dets, err := r.Detect(ctx, img)
	return dets, img, err
}

// Close releases the runner. In-flight calls finish first; later calls return ErrClosed.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.runner.Close()
}
