//go:build gocv

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-foodvision/annotate"
	"github.com/nvr-ai/go-foodvision/config"
	"github.com/nvr-ai/go-foodvision/detector"
)

func main() {
	var (
		deviceID   int
		configPath string
		every      int
	)
	flag.IntVar(&deviceID, "device", 0, "Video capture device ID")
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.IntVar(&every, "every", 5, "Run detection on every Nth frame")
	flag.Parse()

	if err := config.LoadEnv(); err != nil {
		logrus.WithError(err).Fatal("load env")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := cfg.Log.NewLogger()

	rec, err := detector.New(cfg, detector.WithLogger(log))
	if err != nil {
		log.WithError(err).Fatal("create recognizer")
	}
	defer rec.Close()

	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		log.WithError(err).Fatal("open video capture")
	}
	defer webcam.Close()

	window := gocv.NewWindow("Food Detect")
	defer window.Close()

	img := gocv.NewMat()
	defer img.Close()

	fps := 0.0
	frameCount := 0
	lastTime := time.Now()

	log.WithField("device", deviceID).Info("start reading camera device")
	for frame := 0; ; frame++ {
		if ok := webcam.Read(&img); !ok {
			log.WithField("device", deviceID).Error("cannot read device")
			return
		}
		if img.Empty() {
			continue
		}

		frameCount++
		if elapsed := time.Since(lastTime).Seconds(); elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			lastTime = time.Now()
		}

		if every > 0 && frame%every == 0 {
			rgb, err := img.ToImage()
			if err != nil {
				log.WithError(err).Warn("convert frame")
				continue
			}
			dets, err := rec.Detect(context.Background(), rgb)
			if err != nil {
				log.WithError(err).Warn("detect")
			}
			annotate.DrawMat(&img, dets)
			for _, d := range dets {
				log.WithField("fps", fmt.Sprintf("%.2f", fps)).Info(d.String())
			}
		}

		window.IMShow(img)
		if window.WaitKey(1) == 27 {
			return
		}
	}
}
