// Package model - Shared model definitions and contracts.
package model

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-foodvision/models/labels"
	"github.com/nvr-ai/go-foodvision/models/model/preprocess"
	"github.com/nvr-ai/go-foodvision/models/postprocess"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyYOLO is the YOLO model family.
	ModelFamilyYOLO Family = "yolo"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameFoodYOLOv5 is the YOLOv5 food classifier with row-major
	// [cx, cy, w, h, objectness, classes...] output.
	ModelNameFoodYOLOv5 Name = "food-yolov5"
)

// OutputShape is the fixed shape of a detection model's output tensor.
type OutputShape struct {
	// NumBoxes is the number of candidate rows.
	NumBoxes int `json:"num_boxes" yaml:"num_boxes"`
	// NumClasses is the number of class scores per row.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
}

// DefaultOutputShape is the 25200 x (5 + 6) output of the bundled food model.
func DefaultOutputShape() OutputShape {
	return OutputShape{NumBoxes: 25200, NumClasses: 6}
}

// Stride returns the number of values per row: 4 box values, objectness and the class scores.
func (s OutputShape) Stride() int {
	return 5 + s.NumClasses
}

// Len returns the total number of values in the output tensor.
func (s OutputShape) Len() int {
	return s.NumBoxes * s.Stride()
}

// Dims returns the batched tensor shape [1, NumBoxes, Stride].
func (s OutputShape) Dims() []int64 {
	return []int64{1, int64(s.NumBoxes), int64(s.Stride())}
}

// Validate checks that the shape describes at least one box and one class.
func (s OutputShape) Validate() error {
	if s.NumBoxes <= 0 {
		return errors.Errorf("num_boxes must be positive, got %d", s.NumBoxes)
	}
	if s.NumClasses <= 0 {
		return errors.Errorf("num_classes must be positive, got %d", s.NumClasses)
	}
	return nil
}

// Options describes a constructed model.
type Options struct {
	Name                Name                   `json:"name" yaml:"name"`
	Family              Family                 `json:"family" yaml:"family"`
	Path                string                 `json:"path" yaml:"path"`
	Input               preprocess.Config      `json:"input" yaml:"input"`
	Output              OutputShape            `json:"output" yaml:"output"`
	ConfidenceThreshold float32                `json:"confidence_threshold" yaml:"confidence_threshold"`
	NMS                 *postprocess.NMSConfig `json:"nms" yaml:"nms"`
}

// Model is a detection model that turns images into input tensors and raw
// output tensors into detections.
type Model interface {
	Options() Options
	Labels() *labels.Table
	InputShape() []int64
	PreProcess(img image.Image, dst []float32) error
	PostProcess(output []float32, width, height int) ([]postprocess.Detection, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name                Name                   `json:"name" yaml:"name"`
	Path                string                 `json:"path" yaml:"path"`
	Input               preprocess.Config      `json:"input" yaml:"input"`
	Output              OutputShape            `json:"output" yaml:"output"`
	ConfidenceThreshold float32                `json:"confidence_threshold" yaml:"confidence_threshold"`
	NMS                 *postprocess.NMSConfig `json:"nms" yaml:"nms"`
	Labels              *labels.Table          `json:"-" yaml:"-"`
}
