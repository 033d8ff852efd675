package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-foodvision/images"
	"github.com/nvr-ai/go-foodvision/models/postprocess"
)

type stubDetector map[string]struct {
	dets []postprocess.Detection
	err  error
}

func (s stubDetector) DetectFile(_ context.Context, path string) ([]postprocess.Detection, image.Image, error) {
	r, ok := s[path]
	if !ok {
		return nil, nil, errors.New("no such file")
	}
	if r.err != nil {
		return nil, nil, r.err
	}
	return r.dets, image.NewRGBA(image.Rect(0, 0, 120, 80)), nil
}

func TestProcess_ContinuesPastFailures(t *testing.T) {
	salad := postprocess.Detection{Label: "salad", Score: 0.75, Class: 4, Box: images.Rect{X1: 10, Y1: 10, X2: 60, Y2: 50}}
	det := stubDetector{
		"good.jpg":  {dets: []postprocess.Detection{salad}},
		"empty.jpg": {},
		"bad.jpg":   {err: errors.New("inference failed: boom")},
	}

	logger, hook := test.NewNullLogger()
	var out bytes.Buffer
	p := newProcessor("run-1", det, "", &out, logger)

	for _, path := range []string{"good.jpg", "bad.jpg", "empty.jpg"} {
		_, err := p.process(context.Background(), path)
		require.NoError(t, err)
	}

	dec := json.NewDecoder(&out)
	var reports []Report
	for dec.More() {
		var r Report
		require.NoError(t, dec.Decode(&r))
		reports = append(reports, r)
	}
	require.Len(t, reports, 3)

	assert.Equal(t, "run-1", reports[0].RunID)
	assert.Equal(t, 120, reports[0].Width)
	assert.Equal(t, 80, reports[0].Height)
	if diff := cmp.Diff([]postprocess.Detection{salad}, reports[0].Detections); diff != "" {
		t.Errorf("detections mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "bad.jpg", reports[1].Image)
	assert.Contains(t, reports[1].Error, "boom")
	assert.Empty(t, reports[1].Detections)

	assert.Empty(t, reports[2].Error)
	assert.NotNil(t, reports[2].Detections)
	assert.Empty(t, reports[2].Detections)

	require.NotNil(t, hook.LastEntry())
}

func TestProcess_ReportJSONFields(t *testing.T) {
	det := stubDetector{"a.png": {}}
	var out bytes.Buffer
	logger, _ := test.NewNullLogger()

	_, err := newProcessor("r", det, "", &out, logger).process(context.Background(), "a.png")
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &raw))
	for _, key := range []string{"run_id", "image", "width", "height", "detections", "duration_ms"} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "error")
}

func TestProcess_Annotate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "annotated")
	det := stubDetector{"/in/lunch.jpg": {dets: []postprocess.Detection{
		{Label: "pizza", Score: 0.9, Class: 3, Box: images.Rect{X1: 5, Y1: 5, X2: 50, Y2: 50}},
	}}}
	logger, _ := test.NewNullLogger()

	_, err := newProcessor("r", det, dir, &bytes.Buffer{}, logger).process(context.Background(), "/in/lunch.jpg")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "lunch.annotated.png"))
	assert.NoError(t, err)
}
