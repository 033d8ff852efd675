// Package config - Configuration loading for the food recognizer.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-foodvision/inference"
	"github.com/nvr-ai/go-foodvision/models/labels"
	"github.com/nvr-ai/go-foodvision/models/model"
	"github.com/nvr-ai/go-foodvision/models/model/preprocess"
	"github.com/nvr-ai/go-foodvision/models/postprocess"
	"github.com/nvr-ai/go-foodvision/models/yolov5"
)

// Environment variables that override file values.
const (
	EnvModelPath   = "FOODVISION_MODEL_PATH"
	EnvLabelsPath  = "FOODVISION_LABELS_PATH"
	EnvLibraryPath = "FOODVISION_ORT_LIB"
	EnvLogLevel    = "FOODVISION_LOG_LEVEL"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete recognizer configuration.
type Config struct {
	Model     ModelConfig     `json:"model" yaml:"model"`
	Detection DetectionConfig `json:"detection" yaml:"detection"`
	Runtime   RuntimeConfig   `json:"runtime" yaml:"runtime"`
	Labels    LabelsConfig    `json:"labels" yaml:"labels"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// ModelConfig describes the model artifact and its tensor shapes.
type ModelConfig struct {
	Name          model.Name               `json:"name" yaml:"name"`
	Path          string                   `json:"path" yaml:"path"`
	InputWidth    int                      `json:"input_width" yaml:"input_width"`
	InputHeight   int                      `json:"input_height" yaml:"input_height"`
	ChannelOrder  preprocess.ChannelOrder  `json:"channel_order" yaml:"channel_order"`
	Interpolation preprocess.Interpolation `json:"interpolation" yaml:"interpolation"`
	NumBoxes      int                      `json:"num_boxes" yaml:"num_boxes"`
	NumClasses    int                      `json:"num_classes" yaml:"num_classes"`
	InputName     string                   `json:"input_name" yaml:"input_name"`
	OutputName    string                   `json:"output_name" yaml:"output_name"`
}

// DetectionConfig holds the decoding and suppression thresholds.
type DetectionConfig struct {
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	IoUThreshold        float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// MaxDetections caps the result size; 0 disables the cap.
	MaxDetections int  `json:"max_detections" yaml:"max_detections"`
	ClassAware    bool `json:"class_aware" yaml:"class_aware"`
}

// RuntimeConfig configures ONNX Runtime.
type RuntimeConfig struct {
	LibraryPath    string             `json:"library_path" yaml:"library_path"`
	Provider       inference.Provider `json:"provider" yaml:"provider"`
	IntraOpThreads int                `json:"intra_op_threads" yaml:"intra_op_threads"`
	InterOpThreads int                `json:"inter_op_threads" yaml:"inter_op_threads"`
}

// LabelsConfig points at the class name file. An empty path uses the built-in table.
type LabelsConfig struct {
	Path string `json:"path" yaml:"path"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the configuration of the bundled food model.
func DefaultConfig() Config {
	input := preprocess.DefaultConfig()
	output := model.DefaultOutputShape()
	nms := postprocess.DefaultNMSConfig()

	return Config{
		Model: ModelConfig{
			Name:          model.ModelNameFoodYOLOv5,
			Path:          "models/food.onnx",
			InputWidth:    input.InputWidth,
			InputHeight:   input.InputHeight,
			ChannelOrder:  input.ChannelOrder,
			Interpolation: input.Interpolation,
			NumBoxes:      output.NumBoxes,
			NumClasses:    output.NumClasses,
			InputName:     inference.DefaultInputName,
			OutputName:    inference.DefaultOutputName,
		},
		Detection: DetectionConfig{
			ConfidenceThreshold: yolov5.DefaultConfidenceThreshold,
			IoUThreshold:        nms.IoUThreshold,
			MaxDetections:       nms.MaxDetections,
			ClassAware:          nms.ClassAware,
		},
		Runtime: RuntimeConfig{
			Provider: inference.ProviderCPU,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration.
//
// Defaults are overlaid with the YAML file at path (skipped when path is
// empty), then with environment overrides, and the result is validated.
//
// Arguments:
//   - path: The YAML file path, may be empty.
//
// Returns:
//   - Config: The effective configuration.
//   - error: An error if the file cannot be read or parsed, or the result is invalid.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored.
//
// Arguments:
//   - files: The files to load; ".env" when none are given.
//
// Returns:
//   - error: An error if an existing file cannot be parsed.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load env file %s", f)
		}
	}
	return nil
}

// ApplyEnv overrides fields from the FOODVISION_* environment variables.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvModelPath); ok && v != "" {
		c.Model.Path = v
	}
	if v, ok := os.LookupEnv(EnvLabelsPath); ok && v != "" {
		c.Labels.Path = v
	}
	if v, ok := os.LookupEnv(EnvLibraryPath); ok && v != "" {
		c.Runtime.LibraryPath = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
}

// Validate checks every section.
//
// Returns:
//   - error: ErrInvalidConfig wrapped with the first offending field.
func (c Config) Validate() error {
	switch {
	case c.Model.Path == "":
		return errors.Wrap(ErrInvalidConfig, "model.path is required")
	case c.Model.InputWidth <= 0 || c.Model.InputHeight <= 0:
		return errors.Wrapf(ErrInvalidConfig, "model input must be positive, got %dx%d", c.Model.InputWidth, c.Model.InputHeight)
	case c.Model.NumBoxes <= 0 || c.Model.NumClasses <= 0:
		return errors.Wrapf(ErrInvalidConfig, "model output must be positive, got %d boxes x %d classes", c.Model.NumBoxes, c.Model.NumClasses)
	case c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1:
		return errors.Wrapf(ErrInvalidConfig, "detection.confidence_threshold must be in [0, 1], got %v", c.Detection.ConfidenceThreshold)
	case c.Detection.IoUThreshold < 0 || c.Detection.IoUThreshold > 1:
		return errors.Wrapf(ErrInvalidConfig, "detection.iou_threshold must be in [0, 1], got %v", c.Detection.IoUThreshold)
	case c.Detection.MaxDetections < 0:
		return errors.Wrapf(ErrInvalidConfig, "detection.max_detections must not be negative, got %d", c.Detection.MaxDetections)
	case c.Runtime.IntraOpThreads < 0 || c.Runtime.InterOpThreads < 0:
		return errors.Wrap(ErrInvalidConfig, "runtime thread counts must not be negative")
	case !c.Runtime.Provider.Valid():
		return errors.Wrapf(ErrInvalidConfig, "runtime.provider %q is not supported", c.Runtime.Provider)
	}

	if c.Model.ChannelOrder != "" && c.Model.ChannelOrder != preprocess.ChannelOrderHWC && c.Model.ChannelOrder != preprocess.ChannelOrderCHW {
		return errors.Wrapf(ErrInvalidConfig, "model.channel_order %q is not supported", c.Model.ChannelOrder)
	}
	if c.Model.Interpolation != "" && c.Model.Interpolation != preprocess.InterpolationBilinear && c.Model.Interpolation != preprocess.InterpolationLanczos {
		return errors.Wrapf(ErrInvalidConfig, "model.interpolation %q is not supported", c.Model.Interpolation)
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return errors.Wrapf(ErrInvalidConfig, "log.level: %v", err)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return errors.Wrapf(ErrInvalidConfig, "log.format %q is not supported", c.Log.Format)
	}
	return nil
}

// InputConfig returns the preprocessing configuration.
func (c Config) InputConfig() preprocess.Config {
	return preprocess.Config{
		InputWidth:    c.Model.InputWidth,
		InputHeight:   c.Model.InputHeight,
		ChannelOrder:  c.Model.ChannelOrder,
		Interpolation: c.Model.Interpolation,
	}
}

// OutputShape returns the model output shape.
func (c Config) OutputShape() model.OutputShape {
	return model.OutputShape{NumBoxes: c.Model.NumBoxes, NumClasses: c.Model.NumClasses}
}

// NMSConfig returns the suppression configuration.
func (c Config) NMSConfig() *postprocess.NMSConfig {
	return &postprocess.NMSConfig{
		IoUThreshold:  c.Detection.IoUThreshold,
		MaxDetections: c.Detection.MaxDetections,
		ClassAware:    c.Detection.ClassAware,
	}
}

// ModelArgs returns the arguments for models.NewModel.
//
// A zero confidence threshold is replaced by the model default.
func (c Config) ModelArgs(table *labels.Table) model.NewModelArgs {
	return model.NewModelArgs{
		Name:                c.Model.Name,
		Path:                c.Model.Path,
		Input:               c.InputConfig(),
		Output:              c.OutputShape(),
		ConfidenceThreshold: c.Detection.ConfidenceThreshold,
		NMS:                 c.NMSConfig(),
		Labels:              table,
	}
}

// ONNXConfig returns the runner configuration for the given input tensor shape.
func (c Config) ONNXConfig(inputShape []int64) inference.ONNXConfig {
	return inference.ONNXConfig{
		ModelPath:      c.Model.Path,
		LibraryPath:    c.Runtime.LibraryPath,
		InputName:      c.Model.InputName,
		OutputName:     c.Model.OutputName,
		InputShape:     inputShape,
		OutputShape:    c.OutputShape().Dims(),
		IntraOpThreads: c.Runtime.IntraOpThreads,
		InterOpThreads: c.Runtime.InterOpThreads,
		Provider:       c.Runtime.Provider,
	}
}

// NewLogger builds a logger from the log section.
func (c LogConfig) NewLogger() *logrus.Logger {
	log := logrus.New()
	if strings.EqualFold(c.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(c.Level); err == nil {
		log.SetLevel(level)
	}
	return log
}
