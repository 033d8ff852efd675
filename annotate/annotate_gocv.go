//go:build gocv

package annotate

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-foodvision/models/postprocess"
)

// DrawMat renders every detection onto mat in place using OpenCV.
//
// Arguments:
//   - mat: The BGR frame to draw on.
//   - detections: The detections in mat's pixel coordinates.
func DrawMat(mat *gocv.Mat, detections []postprocess.Detection) {
	for _, d := range detections {
		rect := d.Box.ToRectangle()
		c := ClassColor(d.Class)
		gocv.Rectangle(mat, rect, c, Thickness)

		origin := image.Pt(rect.Min.X, rect.Min.Y-4)
		if origin.Y < 12 {
			origin.Y = rect.Min.Y + 14
		}
		gocv.PutText(mat, Caption(d), origin, gocv.FontHersheyPlain, 1.0, c, 1)
	}
}
