// Package yolov5 - postprocess YOLOv5 model outputs.
package yolov5

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-foodvision/images"
	"github.com/nvr-ai/go-foodvision/models/labels"
	"github.com/nvr-ai/go-foodvision/models/model"
	"github.com/nvr-ai/go-foodvision/models/postprocess"
)

// DefaultConfidenceThreshold gates both objectness and the combined score.
const DefaultConfidenceThreshold float32 = 0.5

// ErrOutputShape is returned when the raw output does not match the configured shape.
var ErrOutputShape = errors.New("unexpected output shape")

// Decoder turns raw [cx, cy, w, h, objectness, classes...] rows into detections.
type Decoder struct {
	// Shape is the expected output shape.
	Shape model.OutputShape
	// ConfidenceThreshold is compared against objectness and the combined score.
	ConfidenceThreshold float32
	// Labels resolves class indices to names.
	Labels *labels.Table
}

// Decode converts the flat output tensor into candidate detections.
//
// Rows whose objectness is below the threshold are rejected before the class
// scan. The best class is the first one reaching the maximum score. The
// combined score objectness * best class score must also reach the threshold;
// a score exactly equal to it is kept. Boxes are normalized to the image, so
// they are scaled by the original width and height. Zero-area boxes are
// dropped so that they never reach suppression.
//
// Arguments:
//   - output: The row-major output of NumBoxes x (5 + NumClasses) values.
//   - width: The width of the original image in pixels.
//   - height: The height of the original image in pixels.
//
// Returns:
//   - []postprocess.Detection: Unordered candidate detections.
//   - error: ErrOutputShape if output has the wrong length.
func (d Decoder) Decode(output []float32, width, height int) ([]postprocess.Detection, error) {
	if len(output) != d.Shape.Len() {
		return nil, errors.Wrapf(ErrOutputShape, "got %d values, want %d (%d boxes x %d)",
			len(output), d.Shape.Len(), d.Shape.NumBoxes, d.Shape.Stride())
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid image dimensions: %dx%d", width, height)
	}

	numCols := d.Shape.Stride()
	imgW, imgH := float32(width), float32(height)
	results := make([]postprocess.Detection, 0)

	for i := 0; i < d.Shape.NumBoxes; i++ {
		offset := i * numCols
		objConf := output[offset+4]
		// Negated so that NaN scores are rejected too.
		if !(objConf >= d.ConfidenceThreshold) {
			continue
		}

		classID := -1
		maxScore := float32(0)
		for j := 5; j < numCols; j++ {
			score := output[offset+j]
			if score > maxScore {
				maxScore = score
				classID = j - 5
			}
		}

		finalScore := maxScore * objConf
		if !(finalScore >= d.ConfidenceThreshold) {
			continue
		}

		box := images.FromCenter(
			output[offset+0], // cx
			output[offset+1], // cy
			output[offset+2], // w
			output[offset+3], // h
			imgW,
			imgH,
		)
		if box.Empty() {
			continue
		}

		results = append(results, postprocess.Detection{
			Label: d.Labels.Name(classID),
			Score: finalScore,
			Class: classID,
			Box:   box,
		})
	}

	return results, nil
}

// DecodeTensor decodes a float32 tensor shaped (NumBoxes, Stride) or
// (1, NumBoxes, Stride).
//
// Arguments:
//   - t: The output tensor.
//   - width: The width of the original image in pixels.
//   - height: The height of the original image in pixels.
//
// Returns:
//   - []postprocess.Detection: Unordered candidate detections.
//   - error: ErrOutputShape if the tensor has the wrong dtype or shape.
func (d Decoder) DecodeTensor(t tensor.Tensor, width, height int) ([]postprocess.Detection, error) {
	if t.Dtype() != tensor.Float32 {
		return nil, errors.Wrapf(ErrOutputShape, "dtype %v, want float32", t.Dtype())
	}

	shape := t.Shape()
	var rows, cols int
	switch {
	case len(shape) == 3 && shape[0] == 1:
		rows, cols = shape[1], shape[2]
	case len(shape) == 2:
		rows, cols = shape[0], shape[1]
	default:
		return nil, errors.Wrapf(ErrOutputShape, "tensor shape %v", shape)
	}
	if rows != d.Shape.NumBoxes || cols != d.Shape.Stride() {
		return nil, errors.Wrapf(ErrOutputShape, "tensor shape %v, want (%d, %d)", shape, d.Shape.NumBoxes, d.Shape.Stride())
	}

	if dense, ok := t.(*tensor.Dense); ok && dense.IsView() {
		t = dense.Materialize()
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Wrap(ErrOutputShape, "tensor data is not []float32")
	}

	return d.Decode(data, width, height)
}

// PostProcess decodes the raw output of the YOLOv5 model and applies NMS.
//
// Arguments:
//   - output: The raw output of the model.
//   - width: The width of the original image in pixels.
//   - height: The height of the original image in pixels.
//
// Returns:
//   - []postprocess.Detection: Detections ordered by descending score.
//   - error: ErrOutputShape if output has the wrong length.
func (m *YOLOv5) PostProcess(output []float32, width, height int) ([]postprocess.Detection, error) {
	candidates, err := m.decoder.Decode(output, width, height)
	if err != nil {
		return nil, err
	}
	return postprocess.ApplyGreedyNMS(candidates, m.options.NMS), nil
}
