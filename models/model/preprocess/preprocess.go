// Package preprocess - Image to tensor conversion for detection models.
package preprocess

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ErrInvalidInput is returned for nil or zero-sized images and undersized buffers.
var ErrInvalidInput = errors.New("invalid input")

// ChannelOrder defines the memory layout of the output tensor.
type ChannelOrder string

const (
	// ChannelOrderHWC is Height-Width-Channel ordering (interleaved R,G,B per pixel).
	ChannelOrderHWC ChannelOrder = "hwc"
	// ChannelOrderCHW is Channel-Height-Width ordering (one plane per channel).
	ChannelOrderCHW ChannelOrder = "chw"
)

// Interpolation selects the resampling kernel used when resizing.
type Interpolation string

const (
	// InterpolationBilinear is bilinear resampling.
	InterpolationBilinear Interpolation = "bilinear"
	// InterpolationLanczos is Lanczos3 resampling.
	InterpolationLanczos Interpolation = "lanczos"
)

// Channels is the number of color channels in the tensor (R, G, B).
const Channels = 3

// Config defines preprocessing configuration for a specific model.
type Config struct {
	// InputWidth is the expected width of the model input.
	InputWidth int `json:"input_width" yaml:"input_width"`
	// InputHeight is the expected height of the model input.
	InputHeight int `json:"input_height" yaml:"input_height"`
	// ChannelOrder defines the tensor layout. Defaults to HWC.
	ChannelOrder ChannelOrder `json:"channel_order" yaml:"channel_order"`
	// Interpolation defines the resize kernel. Defaults to bilinear.
	Interpolation Interpolation `json:"interpolation" yaml:"interpolation"`
}

// DefaultConfig returns the 640x640 HWC bilinear configuration of the food model.
func DefaultConfig() Config {
	return Config{
		InputWidth:    640,
		InputHeight:   640,
		ChannelOrder:  ChannelOrderHWC,
		Interpolation: InterpolationBilinear,
	}
}

// Preprocessor resizes and normalizes images into model input tensors.
//
// A Preprocessor holds no mutable state and is safe for concurrent use.
type Preprocessor struct {
	config Config
	interp resize.InterpolationFunction
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
//   - config: The model-specific preprocessing configuration.
//
// Returns:
//   - *Preprocessor: A configured Preprocessor instance.
//   - error: An error if the configuration is invalid.
func NewPreprocessor(config Config) (*Preprocessor, error) {
	if config.InputWidth <= 0 || config.InputHeight <= 0 {
		return nil, errors.Errorf("invalid input dimensions: %dx%d", config.InputWidth, config.InputHeight)
	}

	if config.ChannelOrder == "" {
		config.ChannelOrder = ChannelOrderHWC
	}
	if config.ChannelOrder != ChannelOrderHWC && config.ChannelOrder != ChannelOrderCHW {
		return nil, errors.Errorf("unsupported channel order: %q", config.ChannelOrder)
	}

	var interp resize.InterpolationFunction
	switch config.Interpolation {
	case "", InterpolationBilinear:
		config.Interpolation = InterpolationBilinear
		interp = resize.Bilinear
	case InterpolationLanczos:
		interp = resize.Lanczos3
	default:
		return nil, errors.Errorf("unsupported interpolation: %q", config.Interpolation)
	}

	return &Preprocessor{config: config, interp: interp}, nil
}

// Config returns the effective configuration.
func (p *Preprocessor) Config() Config {
	return p.config
}

// TensorSize returns the number of float32 values in one input tensor.
func (p *Preprocessor) TensorSize() int {
	return p.config.InputWidth * p.config.InputHeight * Channels
}

// Shape returns the batched tensor shape, [1, H, W, 3] or [1, 3, H, W].
func (p *Preprocessor) Shape() []int64 {
	h, w := int64(p.config.InputHeight), int64(p.config.InputWidth)
	if p.config.ChannelOrder == ChannelOrderCHW {
		return []int64{1, Channels, h, w}
	}
	return []int64{1, h, w, Channels}
}

// Preprocess converts an image into a newly allocated input tensor.
//
// Arguments:
//   - img: The input image of any size.
//
// Returns:
//   - []float32: Pixel values in [0, 1], R,G,B channel order.
//   - error: ErrInvalidInput if the image is nil or zero-sized.
func (p *Preprocessor) Preprocess(img image.Image) ([]float32, error) {
	dst := make([]float32, p.TensorSize())
	if err := p.PreprocessInto(img, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// PreprocessInto converts an image into the caller's tensor buffer.
//
// Arguments:
//   - img: The input image of any size.
//   - dst: The destination tensor; must hold at least TensorSize values.
//
// Returns:
//   - error: ErrInvalidInput if the image is nil, zero-sized or dst is too small.
func (p *Preprocessor) PreprocessInto(img image.Image, dst []float32) error {
	if img == nil {
		return errors.Wrap(ErrInvalidInput, "image is nil")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return errors.Wrapf(ErrInvalidInput, "invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}
	if len(dst) < p.TensorSize() {
		return errors.Wrapf(ErrInvalidInput, "destination tensor only holds %d floats, needs %d", len(dst), p.TensorSize())
	}

	width, height := p.config.InputWidth, p.config.InputHeight
	resized := resize.Resize(uint(width), uint(height), img, p.interp)
	rb := resized.Bounds()

	planeSize := width * height
	red := dst[0:planeSize]
	green := dst[planeSize : planeSize*2]
	blue := dst[planeSize*2 : planeSize*3]

	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			rf := float32(r>>8) / 255.0
			gf := float32(g>>8) / 255.0
			bf := float32(b>>8) / 255.0

			if p.config.ChannelOrder == ChannelOrderCHW {
				red[i] = rf
				green[i] = gf
				blue[i] = bf
			} else {
				dst[i*Channels] = rf
				dst[i*Channels+1] = gf
				dst[i*Channels+2] = bf
			}
			i++
		}
	}

	return nil
}
