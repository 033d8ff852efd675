package images

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_DecodesBack(t *testing.T) {
	src := createTestImage(48, 32)

	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, src, format))

			img, err := Decode(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, 48, img.Bounds().Dx())
			assert.Equal(t, 32, img.Bounds().Dy())
		})
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, createTestImage(4, 4), "bmp"))
}

func TestFormatOf(t *testing.T) {
	tests := map[string]ImageFormat{
		"a.jpg":    FormatJPEG,
		"b.JPEG":   FormatJPEG,
		"c.png":    FormatPNG,
		"d.webp":   FormatWebP,
		"e.tar.gz": "",
	}
	for path, want := range tests {
		got, ok := FormatOf(path)
		assert.Equal(t, want, got, path)
		assert.Equal(t, want != "", ok, path)
	}
}
