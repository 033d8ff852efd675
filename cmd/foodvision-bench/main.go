package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-foodvision/benchmark"
	"github.com/nvr-ai/go-foodvision/config"
	"github.com/nvr-ai/go-foodvision/detector"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath string
		output     string
		iterations int
		formats    bool
		width      int
		height     int
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&output, "output", "benchmark_results.json", "Where to write the results")
	flag.IntVar(&iterations, "iterations", 20, "Timed iterations per scenario")
	flag.BoolVar(&formats, "formats", false, "Compare image formats at one resolution instead of sweeping resolutions")
	flag.IntVar(&width, "width", 1280, "Image width for -formats")
	flag.IntVar(&height, "height", 720, "Image height for -formats")
	flag.Parse()

	if err := config.LoadEnv(); err != nil {
		logrus.WithError(err).Error("load env")
		return 2
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Error("load config")
		return 2
	}
	log := cfg.Log.NewLogger()

	rec, err := detector.New(cfg, detector.WithLogger(log))
	if err != nil {
		log.WithError(err).Error("create recognizer")
		return 2
	}
	defer rec.Close()

	scenarios := benchmark.QuickScenarios(iterations)
	if formats {
		scenarios = benchmark.FormatScenarios(width, height, iterations)
	}

	suite := benchmark.NewSuite(rec, log)
	for _, sc := range scenarios {
		suite.AddScenario(sc)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, runErr := suite.Run(ctx)
	if err := suite.SaveResults(output); err != nil {
		log.WithError(err).Error("save results")
		return 1
	}
	log.WithFields(logrus.Fields{"scenarios": len(results), "output": output}).Info("benchmark written")

	if runErr != nil {
		log.WithError(runErr).Error("benchmark")
		return 1
	}
	return 0
}
