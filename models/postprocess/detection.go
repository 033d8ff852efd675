// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-foodvision/images"
)

// Detection represents a single detected object.
type Detection struct {
	// Label is the class name resolved from the label table.
	Label string `json:"label"`
	// Score is the combined confidence in [0, 1].
	Score float32 `json:"confidence"`
	// Class is the predicted class index, or -1 when no class scored above 0.
	Class int `json:"class"`
	// Box is the bounding box in pixel coordinates of the original image.
	Box images.Rect `json:"box"`
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %s (confidence %f): %s", d.Label, d.Score, d.Box)
}
