package benchmark

import (
	"fmt"

	"github.com/nvr-ai/go-foodvision/images"
)

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a new scenario builder
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:        name,
			Resolution:  Resolution{Width: 640, Height: 640, Name: "640x640"},
			ImageFormat: images.FormatJPEG,
			Iterations:  100,
			WarmupRuns:  10,
		},
	}
}

// WithResolution sets the image resolution
func (sb *ScenarioBuilder) WithResolution(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution = Resolution{
		Width:  width,
		Height: height,
		Name:   fmt.Sprintf("%dx%d", width, height),
	}
	return sb
}

// WithImageFormat sets the image format
func (sb *ScenarioBuilder) WithImageFormat(format images.ImageFormat) *ScenarioBuilder {
	sb.scenario.ImageFormat = format
	return sb
}

// WithIterations sets the number of test iterations
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of untimed runs before measuring
func (sb *ScenarioBuilder) WithWarmupRuns(runs int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = runs
	return sb
}

// Build returns the scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// QuickScenarios is a short JPEG sweep over the common resolutions.
func QuickScenarios(iterations int) []Scenario {
	scenarios := make([]Scenario, 0, len(CommonResolutions))
	for _, r := range CommonResolutions {
		sc := NewScenarioBuilder("quick-"+r.Name).
			WithIterations(iterations).
			WithWarmupRuns(2).
			Build()
		sc.Resolution = r
		scenarios = append(scenarios, sc)
	}
	return scenarios
}

// FormatScenarios compares decode and detection cost across encodings at one resolution.
func FormatScenarios(width, height, iterations int) []Scenario {
	scenarios := make([]Scenario, 0, len(images.Formats))
	for _, f := range images.Formats {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("format-%s-%dx%d", f, width, height)).
			WithResolution(width, height).
			WithImageFormat(f).
			WithIterations(iterations).
			Build())
	}
	return scenarios
}
