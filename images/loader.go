package images

import (
	"bytes"
	"image"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// IsSupported reports whether the path has a decodable image extension.
func IsSupported(path string) bool {
	_, ok := FormatOf(path)
	return ok
}

// Load reads and decodes an image file.
//
// Photos taken on phones usually carry an EXIF orientation tag, so the decoded
// image is rotated to match it before any detection runs against it.
//
// Arguments:
//   - path: The path to a JPEG, PNG or WebP file.
//
// Returns:
//   - image.Image: The decoded, upright image.
//   - error: An error if the file cannot be read or decoded.
func Load(path string) (image.Image, error) {
	if format, _ := FormatOf(path); format == FormatWebP {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", path)
		}
		defer f.Close()

		img, err := webp.Decode(f)
		if err != nil {
			return nil, errors.Wrapf(err, "decode webp %s", path)
		}
		return img, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "open image %s", path)
	}
	return img, nil
}

// Decode decodes an in-memory JPEG, PNG or WebP image.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - image.Image: The decoded, upright image.
//   - error: An error if the data is empty or in an unknown format.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("image data is empty")
	}

	img, decodeErr := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if decodeErr == nil {
		return img, nil
	}

	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(decodeErr, "decode image (webp: %v)", err)
	}
	return img, nil
}
