package benchmark

import (
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-foodvision/images"
	"github.com/nvr-ai/go-foodvision/models/postprocess"
)

type countingDetector struct {
	calls  atomic.Int64
	failOn int64
}

func (c *countingDetector) Detect(_ context.Context, img image.Image) ([]postprocess.Detection, error) {
	n := c.calls.Add(1)
	if c.failOn > 0 && n == c.failOn {
		return nil, errors.New("boom")
	}
	b := img.Bounds()
	return []postprocess.Detection{{Label: "apple", Score: 0.9, Box: images.Rect{X2: float32(b.Dx()), Y2: float32(b.Dy())}}}, nil
}

func TestRunScenario(t *testing.T) {
	det := &countingDetector{failOn: 2}
	logger, _ := test.NewNullLogger()
	suite := NewSuite(det, logger)

	sc := NewScenarioBuilder("small").WithResolution(64, 48).WithIterations(5).WithWarmupRuns(2).Build()
	m, err := suite.RunScenario(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, int64(7), det.calls.Load())
	assert.Equal(t, 5, m.DetectionCount)
	assert.InDelta(t, 0.0, m.ErrorRate, 1e-9, "warmup failures are not counted")
	assert.Greater(t, m.FramesPerSecond, 0.0)
	assert.LessOrEqual(t, m.DetectP50, m.DetectP95)
	assert.Len(t, suite.Results(), 1)
}

type failingDetector struct{}

func (failingDetector) Detect(context.Context, image.Image) ([]postprocess.Detection, error) {
	return nil, errors.New("no session")
}

func TestRunScenario_LogsWarmupFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	suite := NewSuite(failingDetector{}, logger)

	m, err := suite.RunScenario(context.Background(), NewScenarioBuilder("down").WithResolution(8, 8).WithIterations(1).WithWarmupRuns(3).Build())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.ErrorRate, 1e-9)

	var debug, warn int
	for _, e := range hook.AllEntries() {
		switch {
		case e.Level == logrus.DebugLevel && e.Message == "warmup run failed":
			debug++
		case e.Level == logrus.WarnLevel && e.Message == "every warmup run failed":
			warn++
		}
	}
	assert.Equal(t, 3, debug)
	assert.Equal(t, 1, warn)
}

func TestRunScenario_CountsErrors(t *testing.T) {
	det := &countingDetector{failOn: 1}
	suite := NewSuite(det, nil)

	m, err := suite.RunScenario(context.Background(), NewScenarioBuilder("e").WithResolution(16, 16).WithIterations(4).WithWarmupRuns(0).Build())
	require.NoError(t, err)
	assert.InDelta(t, 0.25, m.ErrorRate, 1e-9)
	assert.Equal(t, 3, m.DetectionCount)
}

func TestRunScenario_Invalid(t *testing.T) {
	suite := NewSuite(&countingDetector{}, nil)

	_, err := suite.RunScenario(context.Background(), Scenario{Name: "zero"})
	assert.Error(t, err)

	_, err = suite.RunScenario(context.Background(), NewScenarioBuilder("bad").WithImageFormat("tiff").WithIterations(1).Build())
	assert.Error(t, err)
}

func TestRun_CanceledContext(t *testing.T) {
	suite := NewSuite(&countingDetector{}, nil)
	suite.AddScenario(NewScenarioBuilder("c").WithResolution(8, 8).WithIterations(3).WithWarmupRuns(0).Build())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := suite.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_FormatsAndSave(t *testing.T) {
	logger, _ := test.NewNullLogger()
	suite := NewSuite(&countingDetector{}, logger)
	for _, sc := range FormatScenarios(32, 24, 2) {
		sc.WarmupRuns = 0
		suite.AddScenario(sc)
	}

	results, err := suite.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, len(images.Formats))

	path := filepath.Join(t.TempDir(), "out", "results.json")
	require.NoError(t, suite.SaveResults(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []PerformanceMetrics
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, images.FormatWebP, decoded[2].Scenario.ImageFormat)
}

func TestQuickScenarios(t *testing.T) {
	scenarios := QuickScenarios(3)
	require.Len(t, scenarios, len(CommonResolutions))
	for i, sc := range scenarios {
		assert.Equal(t, CommonResolutions[i], sc.Resolution)
		assert.Equal(t, 3, sc.Iterations)
	}
}

func TestSyntheticImage(t *testing.T) {
	img := SyntheticImage(100, 50)
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())
	assert.NotEqual(t, img.RGBAAt(0, 0), img.RGBAAt(30, 25))
}

func TestPercentile(t *testing.T) {
	l := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	sorted := make([]time.Duration, len(l))
	for i, v := range l {
		sorted[i] = time.Duration(v)
	}
	assert.Equal(t, time.Duration(5), percentile(sorted, 0.5))
	assert.Equal(t, time.Duration(10), percentile(sorted, 0.95))
	assert.Equal(t, time.Duration(1), percentile(sorted[:1], 0.95))
}
