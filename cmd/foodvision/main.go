package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-foodvision/config"
	"github.com/nvr-ai/go-foodvision/detector"
	"github.com/nvr-ai/go-foodvision/util"
)

const usage = `Usage: foodvision [flags] <image|dir>...

Detects food items in images and writes one JSON report per image to stdout.

Flags:
`

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		envFile     string
		modelPath   string
		labelsPath  string
		confidence  float64
		iou         float64
		maxDets     int
		classAware  bool
		annotateDir string
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&envFile, "env", ".env", "Path to .env file")
	flag.StringVar(&modelPath, "model", "", "Path to ONNX model file (overrides config)")
	flag.StringVar(&labelsPath, "labels", "", "Path to label file, one class per line (overrides config)")
	flag.Float64Var(&confidence, "confidence", 0.5, "Confidence threshold")
	flag.Float64Var(&iou, "iou", 0.5, "NMS IoU threshold")
	flag.IntVar(&maxDets, "max", 10, "Maximum detections per image, 0 for no limit")
	flag.BoolVar(&classAware, "class-aware", false, "Only suppress overlapping boxes of the same class")
	flag.StringVar(&annotateDir, "annotate", "", "Directory to write annotated images to")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	if err := config.LoadEnv(envFile); err != nil {
		logrus.WithError(err).Error("load env")
		return 2
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Error("load config")
		return 2
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.Model.Path = modelPath
		case "labels":
			cfg.Labels.Path = labelsPath
		case "confidence":
			cfg.Detection.ConfidenceThreshold = float32(confidence)
		case "iou":
			cfg.Detection.IoUThreshold = float32(iou)
		case "max":
			cfg.Detection.MaxDetections = maxDets
		case "class-aware":
			cfg.Detection.ClassAware = classAware
		}
	})
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Error("invalid flags")
		return 2
	}

	runID := uuid.NewString()
	log := cfg.Log.NewLogger()
	log.SetOutput(os.Stderr)
	entry := log.WithField("run_id", runID)

	files, err := util.CollectImageFiles(flag.Args()...)
	if err != nil {
		entry.WithError(err).Error("collect inputs")
		return 2
	}

	rec, err := detector.New(cfg, detector.WithLogger(entry))
	if err != nil {
		entry.WithError(err).Error("create recognizer")
		return 2
	}
	defer rec.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newProcessor(runID, rec, annotateDir, os.Stdout, entry)
	failed := 0
	for _, f := range files {
		if ctx.Err() != nil {
			entry.Warn("interrupted")
			return 130
		}
		report, err := p.process(ctx, f.Path)
		if err != nil {
			entry.WithError(err).Error("write report")
			return 1
		}
		if report.Error != "" {
			failed++
		}
	}

	if stats, ok := rec.Stats(); ok {
		entry.WithFields(logrus.Fields{
			"images":        len(files),
			"failed":        failed,
			"mean_ms":       stats.Mean().Milliseconds(),
			"inference_fps": stats.FPS(),
		}).Info("done")
	}

	if failed > 0 {
		return 1
	}
	return 0
}
