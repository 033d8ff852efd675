package inference

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// Default tensor names of the exported YOLOv5 graph.
const (
	DefaultInputName  = "images"
	DefaultOutputName = "output0"
)

// ErrRunnerClosed is returned by Run after Close.
var ErrRunnerClosed = errors.New("runner closed")

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment loads the shared library and initializes the ONNX Runtime
// environment. Only the first call has any effect.
func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if err := checkLibrary(libPath); err != nil {
			envErr = err
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = errors.Wrap(err, "error initializing ORT environment")
		}
	})
	return envErr
}

// ONNXConfig configures an ONNXRunner.
type ONNXConfig struct {
	// ModelPath is the path to the .onnx model file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// LibraryPath overrides the ONNX Runtime shared library location.
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// InputName is the name of the input node. Defaults to "images".
	InputName string `json:"input_name" yaml:"input_name"`
	// OutputName is the name of the output node. Defaults to "output0".
	OutputName string `json:"output_name" yaml:"output_name"`
	// InputShape is the fixed input tensor shape, e.g. [1, 640, 640, 3].
	InputShape []int64 `json:"input_shape" yaml:"input_shape"`
	// OutputShape is the fixed output tensor shape, e.g. [1, 25200, 11].
	OutputShape []int64 `json:"output_shape" yaml:"output_shape"`
	// IntraOpThreads is the number of threads used inside an operator. 0 lets the runtime decide.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads is the number of threads used across operators. 0 lets the runtime decide.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// Provider selects the execution provider. Defaults to CPU.
	Provider Provider `json:"provider" yaml:"provider"`
}

// Validate checks the configuration without touching the runtime.
func (c ONNXConfig) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if shapeSize(c.InputShape) <= 0 {
		return errors.Errorf("invalid input shape %v", c.InputShape)
	}
	if shapeSize(c.OutputShape) <= 0 {
		return errors.Errorf("invalid output shape %v", c.OutputShape)
	}
	if c.IntraOpThreads < 0 || c.InterOpThreads < 0 {
		return errors.Errorf("thread counts must not be negative: intra=%d inter=%d", c.IntraOpThreads, c.InterOpThreads)
	}
	if !c.Provider.Valid() {
		return errors.Errorf("unsupported execution provider: %q", c.Provider)
	}
	return nil
}

// shapeSize returns the number of elements in shape, or 0 if any dimension is not positive.
func shapeSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range shape {
		if d <= 0 {
			return 0
		}
		n *= d
	}
	return int(n)
}

// ONNXRunner runs a model through ONNX Runtime with preallocated tensors.
//
// The input and output tensors are bound to the session, so runs are
// serialized with a mutex. ONNXRunner is safe for concurrent use.
type ONNXRunner struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	stats   statsRecorder
	log     logrus.FieldLogger
	closed  bool
}

// NewONNXRunner creates a session for the model in config.
//
// Order of operations:
//  1. Environment setup, once per process.
//  2. Tensor allocation for the fixed input and output shapes.
//  3. Session options: threading, graph optimization, execution provider.
//  4. Session creation, binding the tensors.
//
// Arguments:
//   - config: The runner configuration.
//   - log: The logger, may be nil.
//
// Returns:
//   - *ONNXRunner: A runner ready for inference.
//   - error: An error if the configuration is invalid or the runtime fails to load the model.
func NewONNXRunner(config ONNXConfig, log logrus.FieldLogger) (*ONNXRunner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if config.InputName == "" {
		config.InputName = DefaultInputName
	}
	if config.OutputName == "" {
		config.OutputName = DefaultOutputName
	}

	libPath := SharedLibPath(config.LibraryPath)
	if err := initEnvironment(libPath); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(config.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(config.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	session, err := newSession(config, input, output, log)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"path":     config.ModelPath,
		"library":  libPath,
		"provider": config.Provider,
		"input":    config.InputShape,
		"output":   config.OutputShape,
	}).Info("onnx session created")

	return &ONNXRunner{
		session: session,
		input:   input,
		output:  output,
		log:     log,
	}, nil
}

func newSession(config ONNXConfig, input, output *ort.Tensor[float32], log logrus.FieldLogger) (*ort.AdvancedSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(config.IntraOpThreads); err != nil {
		return nil, errors.Wrap(err, "error setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(config.InterOpThreads); err != nil {
		return nil, errors.Wrap(err, "error setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return nil, errors.Wrap(err, "error setting graph optimization level")
	}
	if err := appendProvider(options, config.Provider, log); err != nil {
		return nil, err
	}

	session, err := ort.NewAdvancedSession(
		config.ModelPath,
		[]string{config.InputName},
		[]string{config.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating ORT session for %s", config.ModelPath)
	}
	return session, nil
}

// Run copies input into the session's input tensor, executes the model and
// returns a copy of the output tensor.
//
// Arguments:
//   - ctx: Checked before the pass starts; a started pass runs to completion.
//   - input: The flat input tensor; must match the configured input shape.
//
// Returns:
//   - []float32: A copy of the flat output tensor.
//   - error: An error if the runner is closed, the input size is wrong, or the run fails.
func (r *ONNXRunner) Run(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRunnerClosed
	}

	dst := r.input.GetData()
	if len(input) != len(dst) {
		return nil, errors.Errorf("input has %d values, session expects %d", len(input), len(dst))
	}
	copy(dst, input)

	start := time.Now()
	if err := r.session.Run(); err != nil {
		return nil, errors.Wrap(err, "error running ORT session")
	}
	r.stats.record(time.Since(start))

	out := r.output.GetData()
	result := make([]float32, len(out))
	copy(result, out)
	return result, nil
}

// Stats returns the latency counters.
func (r *ONNXRunner) Stats() Stats {
	return r.stats.snapshot()
}

// ResetStats clears the latency counters.
func (r *ONNXRunner) ResetStats() {
	r.stats.reset()
}

// Close releases the session and its tensors. Further calls are no-ops.
func (r *ONNXRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if r.session != nil {
		if err := r.session.Destroy(); err != nil {
			firstErr = errors.Wrap(err, "error destroying ORT session")
		}
		r.session = nil
	}
	if r.input != nil {
		r.input.Destroy()
		r.input = nil
	}
	if r.output != nil {
		r.output.Destroy()
		r.output = nil
	}
	return firstErr
}
