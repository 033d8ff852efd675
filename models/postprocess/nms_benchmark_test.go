package postprocess

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-foodvision/images"
)

func randomDetections(n int, seed int64) []Detection {
	rng := rand.New(rand.NewSource(seed))
	out := make([]Detection, n)
	for i := range out {
		x := rng.Float32() * 600
		y := rng.Float32() * 600
		out[i] = Detection{
			Label: "food",
			Class: rng.Intn(6),
			Score: 0.5 + rng.Float32()/2,
			Box:   images.Rect{X1: x, Y1: y, X2: x + 20 + rng.Float32()*100, Y2: y + 20 + rng.Float32()*100},
		}
	}
	return out
}

func BenchmarkApplyGreedyNMS(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		dets := randomDetections(n, int64(n))
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ApplyGreedyNMS(dets, DefaultNMSConfig())
			}
		})
	}
}

func BenchmarkApplyGreedyNMS_ClassAware(b *testing.B) {
	dets := randomDetections(500, 1)
	config := &NMSConfig{IoUThreshold: DefaultIoUThreshold, ClassAware: true}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = ApplyGreedyNMS(dets, config)
	}
}
