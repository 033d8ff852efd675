// Package images - Image geometry and loading utilities.
package images

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Rect is a corner-form bounding box in pixel space.
//
// X1,Y1 is the top-left corner (left, top) and X2,Y2 is the bottom-right
// corner (right, bottom).
type Rect struct {
	X1 float32 `json:"left"`
	Y1 float32 `json:"top"`
	X2 float32 `json:"right"`
	Y2 float32 `json:"bottom"`
}

// FromCenter converts a center-form box normalized to [0,1] into a corner-form
// box scaled to the given pixel dimensions.
//
// Arguments:
//   - cx, cy: The normalized center of the box.
//   - w, h: The normalized width and height of the box.
//   - width, height: The pixel dimensions to scale to.
//
// Returns:
//   - Rect: The corner-form box in pixel coordinates.
func FromCenter(cx, cy, w, h, width, height float32) Rect {
	return Rect{
		X1: (cx - w/2) * width,
		Y1: (cy - h/2) * height,
		X2: (cx + w/2) * width,
		Y2: (cy + h/2) * height,
	}
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns the vertical extent of the box.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Empty reports whether the box has no positive area.
func (r Rect) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// Area returns the area of the box, or 0 for degenerate boxes.
func (r Rect) Area() float32 {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// ToRectangle converts the box to an image.Rectangle.
//
// This loses fractional pixels around the edges, which is fine for drawing.
func (r Rect) ToRectangle() image.Rectangle {
	return image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2)).Canon()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.1f, %.1f)-(%.1f, %.1f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU computes the Intersection over Union of two boxes.
//
// IoU is the ratio between the overlapping area of two boxes and the total area
// they cover together:
//
//	IoU = Area of Intersection / Area of Union
//
//	- 1.0 means the boxes are identical.
//	- 0.0 means the boxes don't overlap at all.
//
// The intersection starts at the maximum of the two top-left corners and ends
// at the minimum of the two bottom-right corners. If either side of that
// rectangle is zero or negative the boxes do not overlap. The union follows the
// inclusion-exclusion principle:
//
//	Area(Union) = Area(A) + Area(B) - Area(Intersection)
//
// A box with non-positive area never overlaps anything, so the result is 0.0
// and never NaN.
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//
//	iou := CalculateIoU(a, b) // 25 / (100 + 100 - 25) = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	if r.Empty() || o.Empty() {
		return 0.0
	}

	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return interArea / unionArea
}
