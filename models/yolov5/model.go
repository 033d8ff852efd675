// Package yolov5 - YOLOv5 food detection model.
package yolov5

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-foodvision/models/labels"
	"github.com/nvr-ai/go-foodvision/models/model"
	"github.com/nvr-ai/go-foodvision/models/model/preprocess"
	"github.com/nvr-ai/go-foodvision/models/postprocess"
)

// YOLOv5 is the instance of the YOLOv5 model.
type YOLOv5 struct {
	options      model.Options
	labels       *labels.Table
	preprocessor *preprocess.Preprocessor
	decoder      Decoder
}

// NewModel creates a new model.
//
// Zero-valued input, output and threshold arguments fall back to the bundled
// food model's defaults.
//
// Arguments:
//   - args: The arguments for creating a new model.
//
// Returns:
//   - *YOLOv5: The model.
//   - error: An error if the arguments describe an invalid model.
func NewModel(args model.NewModelArgs) (*YOLOv5, error) {
	input := args.Input
	if input.InputWidth == 0 && input.InputHeight == 0 {
		def := preprocess.DefaultConfig()
		input.InputWidth, input.InputHeight = def.InputWidth, def.InputHeight
	}
	preprocessor, err := preprocess.NewPreprocessor(input)
	if err != nil {
		return nil, errors.Wrap(err, "NewModel input")
	}

	output := args.Output
	if output == (model.OutputShape{}) {
		output = model.DefaultOutputShape()
	}
	if err := output.Validate(); err != nil {
		return nil, errors.Wrap(err, "NewModel output")
	}

	threshold := args.ConfidenceThreshold
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, errors.Errorf("NewModel confidence threshold must be in [0, 1], got %v", threshold)
	}

	nms := args.NMS
	if nms == nil {
		nms = postprocess.DefaultNMSConfig()
	}

	table := args.Labels
	if table == nil {
		table = labels.Default()
	}

	return &YOLOv5{
		options: model.Options{
			Name:                model.ModelNameFoodYOLOv5,
			Family:              model.ModelFamilyYOLO,
			Path:                args.Path,
			Input:               preprocessor.Config(),
			Output:              output,
			ConfidenceThreshold: threshold,
			NMS:                 nms,
		},
		labels:       table,
		preprocessor: preprocessor,
		decoder: Decoder{
			Shape:               output,
			ConfidenceThreshold: threshold,
			Labels:              table,
		},
	}, nil
}

// Options returns the options for the YOLOv5 model.
func (m *YOLOv5) Options() model.Options {
	return m.options
}

// Labels returns the label table used to name detections.
func (m *YOLOv5) Labels() *labels.Table {
	return m.labels
}

// InputShape returns the batched input tensor shape.
func (m *YOLOv5) InputShape() []int64 {
	return m.preprocessor.Shape()
}

// PreProcess fills dst with the model input tensor for img.
//
// Arguments:
//   - img: The image to convert.
//   - dst: The input tensor buffer.
//
// Returns:
//   - error: preprocess.ErrInvalidInput for unusable images or buffers.
func (m *YOLOv5) PreProcess(img image.Image, dst []float32) error {
	return m.preprocessor.PreprocessInto(img, dst)
}
