package main

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-foodvision/annotate"
	"github.com/nvr-ai/go-foodvision/models/postprocess"
)

// Report is the JSON line written for each processed image.
type Report struct {
	RunID      string                  `json:"run_id"`
	Image      string                  `json:"image"`
	Width      int                     `json:"width"`
	Height     int                     `json:"height"`
	Detections []postprocess.Detection `json:"detections"`
	DurationMS float64                 `json:"duration_ms"`
	Error      string                  `json:"error,omitempty"`
}

// fileDetector is the part of the recognizer the command needs.
type fileDetector interface {
	DetectFile(ctx context.Context, path string) ([]postprocess.Detection, image.Image, error)
}

// processor runs detection over files and writes one report per file.
type processor struct {
	runID       string
	detector    fileDetector
	annotateDir string
	log         logrus.FieldLogger
	enc         *json.Encoder
}

func newProcessor(runID string, det fileDetector, annotateDir string, out io.Writer, log logrus.FieldLogger) *processor {
	return &processor{
		runID:       runID,
		detector:    det,
		annotateDir: annotateDir,
		log:         log,
		enc:         json.NewEncoder(out),
	}
}

// process handles one image. A failing image is reported and logged but does
// not stop the run; the returned error only reports output failures.
func (p *processor) process(ctx context.Context, path string) (Report, error) {
	log := p.log.WithField("path", path)
	start := time.Now()

	dets, img, err := p.detector.DetectFile(ctx, path)
	report := Report{
		RunID:      p.runID,
		Image:      path,
		Detections: dets,
		DurationMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if report.Detections == nil {
		report.Detections = []postprocess.Detection{}
	}
	if img != nil {
		report.Width, report.Height = img.Bounds().Dx(), img.Bounds().Dy()
	}

	if err != nil {
		report.Error = err.Error()
		log.WithError(err).Error("detection failed")
	} else {
		log.WithFields(logrus.Fields{
			"detections":  len(dets),
			"duration_ms": report.DurationMS,
		}).Info("detected")

		if p.annotateDir != "" {
			if err := p.saveAnnotated(path, img, dets); err != nil {
				log.WithError(err).Warn("could not save annotated image")
			}
		}
	}

	if err := p.enc.Encode(report); err != nil {
		return report, errors.Wrap(err, "write report")
	}
	return report, nil
}

func (p *processor) saveAnnotated(path string, img image.Image, dets []postprocess.Detection) error {
	if err := os.MkdirAll(p.annotateDir, 0o755); err != nil {
		return errors.Wrap(err, "create annotate dir")
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".annotated.png"
	return imaging.Save(annotate.Draw(img, dets), filepath.Join(p.annotateDir, name))
}
