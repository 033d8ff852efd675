package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-foodvision/inference"
	"github.com/nvr-ai/go-foodvision/models/model/preprocess"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvModelPath, EnvLabelsPath, EnvLibraryPath, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 640, cfg.Model.InputWidth)
	assert.Equal(t, 640, cfg.Model.InputHeight)
	assert.Equal(t, 25200, cfg.Model.NumBoxes)
	assert.Equal(t, 6, cfg.Model.NumClasses)
	assert.Equal(t, float32(0.5), cfg.Detection.ConfidenceThreshold)
	assert.Equal(t, float32(0.5), cfg.Detection.IoUThreshold)
	assert.Equal(t, 10, cfg.Detection.MaxDetections)
	assert.False(t, cfg.Detection.ClassAware)
	assert.Equal(t, []int64{1, 25200, 11}, cfg.OutputShape().Dims())
}

func TestLoad_YAMLOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "foodvision.yaml", `
model:
  path: /models/custom.onnx
  channel_order: chw
detection:
  class_aware: true
  max_detections: 5
runtime:
  provider: coreml
  intra_op_threads: 4
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/models/custom.onnx", cfg.Model.Path)
	assert.Equal(t, preprocess.ChannelOrderCHW, cfg.Model.ChannelOrder)
	assert.Equal(t, 640, cfg.Model.InputWidth)
	assert.True(t, cfg.Detection.ClassAware)
	assert.Equal(t, 5, cfg.Detection.MaxDetections)
	assert.Equal(t, float32(0.5), cfg.Detection.IoUThreshold)
	assert.Equal(t, inference.ProviderCoreML, cfg.Runtime.Provider)
	assert.Equal(t, 4, cfg.Runtime.IntraOpThreads)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvModelPath, "/env/model.onnx")
	t.Setenv(EnvLabelsPath, "/env/labels.txt")
	t.Setenv(EnvLibraryPath, "/env/libonnxruntime.so")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/model.onnx", cfg.Model.Path)
	assert.Equal(t, "/env/labels.txt", cfg.Labels.Path)
	assert.Equal(t, "/env/libonnxruntime.so", cfg.Runtime.LibraryPath)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "model: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "invalid.yaml", "detection:\n  iou_threshold: 2\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model path", func(c *Config) { c.Model.Path = "" }},
		{"zero input width", func(c *Config) { c.Model.InputWidth = 0 }},
		{"zero classes", func(c *Config) { c.Model.NumClasses = 0 }},
		{"confidence above one", func(c *Config) { c.Detection.ConfidenceThreshold = 1.1 }},
		{"negative iou", func(c *Config) { c.Detection.IoUThreshold = -0.1 }},
		{"negative max detections", func(c *Config) { c.Detection.MaxDetections = -1 }},
		{"negative threads", func(c *Config) { c.Runtime.InterOpThreads = -2 }},
		{"unknown provider", func(c *Config) { c.Runtime.Provider = "tpu" }},
		{"unknown channel order", func(c *Config) { c.Model.ChannelOrder = "bgr" }},
		{"unknown interpolation", func(c *Config) { c.Model.Interpolation = "cubic" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
		})
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv(EnvModelPath, "")
	os.Unsetenv(EnvModelPath)

	path := writeFile(t, ".env", EnvModelPath+"=/dotenv/model.onnx\n")
	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "/dotenv/model.onnx", os.Getenv(EnvModelPath))

	require.NoError(t, LoadEnv(writeFile(t, "other.env", EnvModelPath+"=/ignored.onnx\n")))
	assert.Equal(t, "/dotenv/model.onnx", os.Getenv(EnvModelPath))
}

func TestDerivedConfigs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime.LibraryPath = "/lib/ort.so"

	args := cfg.ModelArgs(nil)
	assert.Equal(t, cfg.Model.Path, args.Path)
	assert.Equal(t, float32(0.5), args.NMS.IoUThreshold)
	assert.Equal(t, 10, args.NMS.MaxDetections)

	onnx := cfg.ONNXConfig([]int64{1, 640, 640, 3})
	require.NoError(t, onnx.Validate())
	assert.Equal(t, "/lib/ort.so", onnx.LibraryPath)
	assert.Equal(t, []int64{1, 25200, 11}, onnx.OutputShape)
	assert.Equal(t, "images", onnx.InputName)
}

func TestLogConfig_NewLogger(t *testing.T) {
	log := LogConfig{Level: "debug", Format: "json"}.NewLogger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = LogConfig{Level: "nonsense"}.NewLogger()
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}
