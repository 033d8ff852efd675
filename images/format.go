package images

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
)

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
)

// Formats lists every format Encode can produce.
var Formats = []ImageFormat{FormatJPEG, FormatPNG, FormatWebP}

// EncodeQuality is the JPEG and lossy WebP quality used by Encode.
const EncodeQuality = 90

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (ImageFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, true
	case ".png":
		return FormatPNG, true
	case ".webp":
		return FormatWebP, true
	}
	return "", false
}

// Encode writes img to w in the given format.
//
// Arguments:
//   - w: The destination.
//   - img: The image to encode.
//   - format: The output format.
//
// Returns:
//   - error: An error if the format is unknown or encoding fails.
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	var err error
	switch format {
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: EncodeQuality})
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatWebP:
		err = webp.Encode(w, img, &webp.Options{Quality: EncodeQuality})
	default:
		return errors.Errorf("unsupported image format: %q", format)
	}
	return errors.Wrapf(err, "encode %s", format)
}
