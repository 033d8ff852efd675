// Package models - registry for models.
package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-foodvision/models/model"
	"github.com/nvr-ai/go-foodvision/models/yolov5"
)

// ErrUnsupportedModel is returned for model names the registry does not know.
var ErrUnsupportedModel = errors.New("unsupported model")

// NewModel creates a new detection model instance based on the specified model name.
//
// An empty name selects the food YOLOv5 model.
//
// Arguments:
//   - args: Configuration parameters specifying the model type and location.
//
// Returns:
//   - model.Model: A fully configured model instance implementing the Model interface.
//   - error: An error if the model name is unsupported or the arguments are invalid.
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case "", model.ModelNameFoodYOLOv5:
		m, err := yolov5.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedModel, "%q", args.Name)
	}
}
