// Package annotate - Draw detections onto images.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/nvr-ai/go-foodvision/models/postprocess"
)

const (
	// Thickness is the box outline width in pixels.
	Thickness = 2

	labelPadding = 2
	goldenAngle  = 137.508
)

// ClassColor returns a stable, distinct color for a class index.
//
// Hues are spread by the golden angle in HCL space so that neighbouring
// class indices never share a similar color.
//
// Arguments:
//   - class: The class index; negative indices map to gray.
//
// Returns:
//   - color.RGBA: An opaque color.
func ClassColor(class int) color.RGBA {
	if class < 0 {
		return color.RGBA{R: 128, G: 128, B: 128, A: 255}
	}
	hue := math.Mod(float64(class)*goldenAngle, 360)
	r, g, b := colorful.Hcl(hue, 0.7, 0.6).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Caption returns the text drawn above a detection box.
func Caption(d postprocess.Detection) string {
	return fmt.Sprintf("%s %.0f%%", d.Label, d.Score*100)
}

// Draw renders every detection onto a copy of img.
//
// Each box is outlined in its class color with a filled caption above it, or
// just inside its top edge when there is no room above. Boxes are clipped to
// the image bounds. img is not modified.
//
// Arguments:
//   - img: The source image.
//   - detections: The detections in img's pixel coordinates.
//
// Returns:
//   - *image.RGBA: The annotated copy, with the same bounds as img.
func Draw(img image.Image, detections []postprocess.Detection) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	for _, d := range detections {
		rect := d.Box.ToRectangle().Add(bounds.Min).Intersect(bounds)
		if rect.Empty() {
			continue
		}
		c := ClassColor(d.Class)
		outline(dst, rect, c)
		caption(dst, rect, Caption(d), c)
	}
	return dst
}

// outline strokes rect with the given color.
func outline(dst *image.RGBA, rect image.Rectangle, c color.RGBA) {
	src := image.NewUniform(c)
	t := Thickness
	if rect.Dx() < 2*t || rect.Dy() < 2*t {
		draw.Draw(dst, rect, src, image.Point{}, draw.Src)
		return
	}
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+t),
		image.Rect(rect.Min.X, rect.Max.Y-t, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+t, rect.Max.Y),
		image.Rect(rect.Max.X-t, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}

// caption draws text on a filled background anchored at the top-left corner of rect.
func caption(dst *image.RGBA, rect image.Rectangle, text string, c color.RGBA) {
	face := basicfont.Face7x13
	bounds := dst.Bounds()

	width := font.MeasureString(face, text).Ceil() + 2*labelPadding
	height := face.Height + 2*labelPadding

	top := rect.Min.Y - height
	if top < bounds.Min.Y {
		top = rect.Min.Y
	}
	bg := image.Rect(rect.Min.X, top, rect.Min.X+width, top+height).Intersect(bounds)
	if bg.Empty() {
		return
	}
	draw.Draw(dst, bg, image.NewUniform(c), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor(c)),
		Face: face,
		Dot:  fixed.P(rect.Min.X+labelPadding, top+labelPadding+face.Ascent),
	}
	d.DrawString(text)
}

// textColor picks black or white, whichever reads better on bg.
func textColor(bg color.RGBA) color.Color {
	l, _, _ := colorful.Color{
		R: float64(bg.R) / 255,
		G: float64(bg.G) / 255,
		B: float64(bg.B) / 255,
	}.Lab()
	if l > 0.6 {
		return color.Black
	}
	return color.White
}
