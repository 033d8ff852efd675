// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-foodvision/images"
)

const (
	// DefaultIoUThreshold is the overlap above which a lower scored box is suppressed.
	DefaultIoUThreshold float32 = 0.5
	// DefaultMaxDetections caps the number of detections surfaced per image.
	DefaultMaxDetections = 10
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap threshold for suppression (strictly greater suppresses).
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// MaxDetections stops suppression once this many detections are kept. 0 means no cap.
	MaxDetections int `json:"max_detections" yaml:"max_detections"`
	// ClassAware restricts suppression to detections of the same class.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// DefaultNMSConfig returns the label-agnostic configuration used by the food model.
func DefaultNMSConfig() *NMSConfig {
	return &NMSConfig{
		IoUThreshold:  DefaultIoUThreshold,
		MaxDetections: DefaultMaxDetections,
		ClassAware:    false,
	}
}

// SortByScore returns a copy of detections sorted by descending score.
//
// Ties keep their original relative order.
func SortByScore(detections []Detection) []Detection {
	sorted := make([]Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Detections are sorted by descending score first, so the input does not need
// to be ordered and is never modified. Every kept detection suppresses the
// later detections it overlaps by more than config.IoUThreshold. When
// config.ClassAware is false a box of one class can suppress a box of another.
//
// Arguments:
//   - detections: Candidate detections in any order.
//   - config: NMS configuration. A nil config uses DefaultNMSConfig.
//
// Returns:
//   - Filtered detections, highest score first, at most config.MaxDetections
//     long. If no detections are provided, returns nil.
func ApplyGreedyNMS(detections []Detection, config *NMSConfig) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}
	if config == nil {
		config = DefaultNMSConfig()
	}

	sorted := SortByScore(detections)

	limit := n
	if config.MaxDetections > 0 && config.MaxDetections < limit {
		limit = config.MaxDetections
	}

	filtered := make([]Detection, 0, limit)
	suppressed := make([]bool, n)

	for i := 0; i < n; i++ {
		if suppressed[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		if len(filtered) == limit {
			break
		}

		for j := i + 1; j < n; j++ {
			if suppressed[j] {
				continue
			}
			if config.ClassAware && sorted[j].Class != anchor.Class {
				continue
			}
			if images.CalculateIoU(anchor.Box, sorted[j].Box) > config.IoUThreshold {
				suppressed[j] = true
			}
		}
	}

	return filtered
}
