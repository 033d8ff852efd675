// Package benchmark - Functionality for running benchmarks.
package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-foodvision/images"
	"github.com/nvr-ai/go-foodvision/models/postprocess"
)

// Resolution represents image dimensions for benchmarking
type Resolution struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Name   string `json:"name" yaml:"name"`
}

// CommonResolutions are typical food photo sizes, from thumbnails to phone camera output.
var CommonResolutions = []Resolution{
	{Width: 320, Height: 240, Name: "thumbnail"},
	{Width: 640, Height: 640, Name: "model-native"},
	{Width: 1280, Height: 720, Name: "720p"},
	{Width: 1920, Height: 1080, Name: "1080p"},
	{Width: 4032, Height: 3024, Name: "phone-12mp"},
}

// Scenario defines a specific test configuration
type Scenario struct {
	Name        string             `json:"name" yaml:"name"`
	Resolution  Resolution         `json:"resolution" yaml:"resolution"`
	ImageFormat images.ImageFormat `json:"image_format" yaml:"image_format"`
	Iterations  int                `json:"iterations" yaml:"iterations"`
	WarmupRuns  int                `json:"warmup_runs" yaml:"warmup_runs"`
}

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario        Scenario      `json:"scenario"`
	Timestamp       time.Time     `json:"timestamp"`
	TotalDuration   time.Duration `json:"total_duration"`
	DecodeDuration  time.Duration `json:"decode_duration"`
	DetectDuration  time.Duration `json:"detect_duration"`
	DetectP50       time.Duration `json:"detect_p50"`
	DetectP95       time.Duration `json:"detect_p95"`
	FramesPerSecond float64       `json:"frames_per_second"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
	DetectionCount  int           `json:"detection_count"`
	ErrorRate       float64       `json:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

// Detector is the part of the recognizer under benchmark.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]postprocess.Detection, error)
}

// Suite manages and executes benchmark scenarios
type Suite struct {
	detector  Detector
	log       logrus.FieldLogger
	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - detector: The detector to benchmark.
//   - log: The logger, may be nil.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(detector Detector, log logrus.FieldLogger) *Suite {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Suite{detector: detector, log: log}
}

// AddScenario adds a test scenario to the benchmark suite
func (s *Suite) AddScenario(scenario Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, scenario)
}

// Results returns a copy of the collected metrics.
func (s *Suite) Results() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PerformanceMetrics(nil), s.results...)
}

// Run executes every scenario in order and stops at the first context error.
//
// Arguments:
//   - ctx: The context for the run.
//
// Returns:
//   - []PerformanceMetrics: Metrics for each completed scenario.
//   - error: An error if a scenario could not be prepared or ctx was canceled.
func (s *Suite) Run(ctx context.Context) ([]PerformanceMetrics, error) {
	s.mu.RLock()
	scenarios := append([]Scenario(nil), s.scenarios...)
	s.mu.RUnlock()

	for _, sc := range scenarios {
		m, err := s.RunScenario(ctx, sc)
		if err != nil {
			return s.Results(), errors.Wrapf(err, "scenario %s", sc.Name)
		}
		s.log.WithFields(logrus.Fields{
			"scenario":   sc.Name,
			"fps":        m.FramesPerSecond,
			"detect_p95": m.DetectP95,
			"error_rate": m.ErrorRate,
		}).Info("scenario complete")
	}
	return s.Results(), nil
}

// RunScenario executes a single benchmark scenario.
//
// Each iteration decodes a synthetic photo encoded in the scenario's format
// and runs detection on it, so decode cost is measured alongside inference.
//
// Arguments:
//   - ctx: The context for the run.
//   - scenario: The scenario to execute.
//
// Returns:
//   - *PerformanceMetrics: The collected metrics.
//   - error: An error if the scenario is invalid or ctx was canceled.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("iterations must be positive, got %d", scenario.Iterations)
	}

	var buf bytes.Buffer
	if err := images.Encode(&buf, SyntheticImage(scenario.Resolution.Width, scenario.Resolution.Height), scenario.ImageFormat); err != nil {
		return nil, err
	}
	data := buf.Bytes()

	warmupErrors := 0
	for i := 0; i < scenario.WarmupRuns; i++ {
		img, err := images.Decode(data)
		if err != nil {
			return nil, err
		}
		if _, err := s.detector.Detect(ctx, img); err != nil {
			warmupErrors++
			s.log.WithError(err).WithFields(logrus.Fields{
				"scenario": scenario.Name,
				"run":      i,
			}).Debug("warmup run failed")
		}
	}
	if warmupErrors > 0 && warmupErrors == scenario.WarmupRuns {
		s.log.WithField("scenario", scenario.Name).Warn("every warmup run failed")
	}

	runtime.GC()
	latencies := make([]time.Duration, 0, scenario.Iterations)
	var decodeTotal time.Duration
	var errCount, detCount int

	start := time.Now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t0 := time.Now()
		img, err := images.Decode(data)
		decodeTotal += time.Since(t0)
		if err != nil {
			errCount++
			continue
		}

		t1 := time.Now()
		dets, err := s.detector.Detect(ctx, img)
		latencies = append(latencies, time.Since(t1))
		if err != nil {
			errCount++
			continue
		}
		detCount += len(dets)
	}
	total := time.Since(start)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := &PerformanceMetrics{
		Scenario:       scenario,
		Timestamp:      start,
		TotalDuration:  total,
		DecodeDuration: decodeTotal / time.Duration(scenario.Iterations),
		DetectionCount: detCount,
		ErrorRate:      float64(errCount) / float64(scenario.Iterations),
		MemoryStats: MemoryMetrics{
			AllocBytes:      mem.Alloc,
			TotalAllocBytes: mem.TotalAlloc,
			SysBytes:        mem.Sys,
			NumGC:           mem.NumGC,
			HeapAllocBytes:  mem.HeapAlloc,
		},
	}
	if total > 0 {
		m.FramesPerSecond = float64(scenario.Iterations) / total.Seconds()
	}
	if len(latencies) > 0 {
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		m.DetectDuration = sum / time.Duration(len(latencies))
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		m.DetectP50 = percentile(latencies, 0.50)
		m.DetectP95 = percentile(latencies, 0.95)
	}

	s.mu.Lock()
	s.results = append(s.results, *m)
	s.mu.Unlock()

	return m, nil
}

// SaveResults writes the collected metrics as indented JSON.
func (s *Suite) SaveResults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	data, err := json.MarshalIndent(s.Results(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal results")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "write results")
}

// percentile returns the nearest-rank percentile of sorted latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted))*p+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// SyntheticImage draws a plate-like test photo: a light tablecloth with a few
// colored discs.
func SyntheticImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	discs := []struct {
		cx, cy, r float64
		c         color.RGBA
	}{
		{0.3, 0.5, 0.18, color.RGBA{220, 60, 40, 255}},
		{0.7, 0.4, 0.15, color.RGBA{240, 200, 60, 255}},
		{0.55, 0.75, 0.12, color.RGBA{80, 170, 70, 255}},
	}
	short := float64(width)
	if height < width {
		short = float64(height)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{235, 230, 220, 255}
			for _, d := range discs {
				dx := float64(x) - d.cx*float64(width)
				dy := float64(y) - d.cy*float64(height)
				if dx*dx+dy*dy <= (d.r*short)*(d.r*short) {
					c = d.c
				}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
