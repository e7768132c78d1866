package artbatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianadrielbraun/qrart/internal/controlnet"
	"github.com/cristianadrielbraun/qrart/internal/params"
	"github.com/cristianadrielbraun/qrart/internal/store"
)

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, c)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeGen struct {
	mu    sync.Mutex
	reqs  []*controlnet.Request
	image string
	fail  error
}

func (f *fakeGen) Txt2Img(_ context.Context, req *controlnet.Request) (*controlnet.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.fail != nil {
		return nil, f.fail
	}
	return &controlnet.Response{Images: []string{f.image}}, nil
}

type fakeRec struct {
	mu       sync.Mutex
	created  []string
	images   []store.Image
	finished []error
}

func (f *fakeRec) CreateRun(_ context.Context, folder, _ string, _ int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, folder)
	return int64(len(f.created)), nil
}

func (f *fakeRec) AddImage(_ context.Context, img store.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, img)
	return nil
}

func (f *fakeRec) FinishRun(_ context.Context, _ int64, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, err)
	return nil
}

func fixedNames(name string) NameSource { return func() string { return name } }

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newRunner(t *testing.T, gen Generator, rec Recorder, limit int) (*Runner, string) {
	t.Helper()
	root := t.TempDir()
	return New(Options{
		Generator:     gen,
		Recorder:      rec,
		ImagesDir:     root,
		MaxConcurrent: limit,
		Names:         fixedNames("Lantern"),
		Logger:        quiet(),
	}), root
}

func TestSettingsParamSet(t *testing.T) {
	s := DefaultSettings()
	s.HRSteps = "10,20"
	s.Weight = ""

	set := s.ParamSet()
	assert.Equal(t, []string{ParamSteps, ParamWeight, ParamGuidanceStart, ParamGuidanceEnd, ParamHRSteps}, set.Keys())

	w, _ := set.Get(ParamWeight)
	assert.True(t, w.IsAbsent())
	hr, _ := set.Get(ParamHRSteps)
	assert.Equal(t, "0", hr.Interface(), "hi-res steps are pinned when hi-res is off")

	s.EnableHR = true
	hr, _ = s.ParamSet().Get(ParamHRSteps)
	assert.Equal(t, "10,20", hr.Interface())
}

func TestPlanOrder(t *testing.T) {
	s := DefaultSettings()
	s.Steps = "10, 20"
	s.Weight = "0.5,1.5"

	jobs, err := Plan([]string{"sea", "city"}, s)
	require.NoError(t, err)
	require.Len(t, jobs, 8)

	type key struct {
		prompt, steps, weight string
	}
	var got []key
	for i, j := range jobs {
		assert.Equal(t, i, j.Index)
		st, _ := j.Params.String(ParamSteps)
		w, _ := j.Params.String(ParamWeight)
		got = append(got, key{j.Prompt, st, w})
	}
	assert.Equal(t, []key{
		{"sea", "10", "0.5"}, {"sea", "10", "1.5"}, {"sea", "20", "0.5"}, {"sea", "20", "1.5"},
		{"city", "10", "0.5"}, {"city", "10", "1.5"}, {"city", "20", "0.5"}, {"city", "20", "1.5"},
	}, got)
	assert.Equal(t, "gen_image_1_3.png", jobs[7].FileName())
}

func TestPlanValidation(t *testing.T) {
	tests := map[string]func(*Settings){
		"steps not a number": func(s *Settings) { s.Steps = "20,lots" },
		"steps too high":     func(s *Settings) { s.Steps = "151" },
		"steps fractional":   func(s *Settings) { s.Steps = "2.5" },
		"weight too high":    func(s *Settings) { s.Weight = "2.5" },
		"weight NaN":         func(s *Settings) { s.Weight = "NaN" },
		"guidance infinite":  func(s *Settings) { s.GuidanceEnd = "+Inf" },
		"guidance negative":  func(s *Settings) { s.GuidanceStart = "-0.1" },
		"hr steps too high":  func(s *Settings) { s.EnableHR = true; s.HRSteps = "200" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings()
			mutate(&s)
			_, err := Plan([]string{"p"}, s)
			assert.ErrorIs(t, err, params.ErrInvalidParameterValue)
		})
	}
}

func TestRun(t *testing.T) {
	gen := &fakeGen{image: base64.StdEncoding.EncodeToString(pngBytes(t, color.White))}
	rec := &fakeRec{}
	r, root := newRunner(t, gen, rec, 1)

	s := DefaultSettings()
	s.Steps = "10,20"
	s.GuidanceEnd = ""

	var progress []Progress
	res, err := r.Run(context.Background(), Input{
		Prompts:    []string{"Undersea marine life", "NYC skyline"},
		Settings:   s,
		Image:      pngBytes(t, color.Black),
		Source:     "upload",
		OnProgress: func(p Progress) { progress = append(progress, p) },
	})
	require.NoError(t, err)

	assert.Equal(t, "lantern", res.Folder)
	assert.Equal(t, filepath.Join(root, "lantern"), res.Dir)
	assert.FileExists(t, filepath.Join(res.Dir, StartImageName))
	require.Len(t, res.Images, 4)
	for _, o := range res.Images {
		assert.FileExists(t, filepath.Join(res.Dir, o.File))
	}
	assert.Equal(t, "gen_image_1_1.png", res.Images[3].File)
	assert.Equal(t, "20", res.Images[3].Params[ParamSteps])
	assert.Nil(t, res.Images[3].Params[ParamGuidanceEnd])
	assert.Equal(t, []string{ParamSteps, ParamWeight, ParamGuidanceStart, ParamGuidanceEnd, ParamHRSteps}, res.Images[3].Keys)

	require.Len(t, progress, 4)
	assert.Equal(t, 100, progress[3].Percent())
	assert.Equal(t, 25, progress[0].Percent())

	require.Len(t, gen.reqs, 4)
	first := gen.reqs[0]
	assert.Equal(t, "Undersea marine life", first.Prompt)
	assert.Equal(t, 10, first.Field(ParamSteps))
	assert.Equal(t, 0, first.Field(ParamHRSteps))
	assert.Equal(t, false, first.Field("enable_hr"))
	assert.Equal(t, 1.0, first.UnitField(ParamWeight))
	assert.Equal(t, 0.0, first.UnitField(ParamGuidanceStart))
	assert.Equal(t, 0.75, first.UnitField(ParamGuidanceEnd), "absent parameter keeps the body default")

	assert.Equal(t, []string{"lantern"}, rec.created)
	assert.Len(t, rec.images, 4)
	assert.Equal(t, []error{nil}, rec.finished)
}

func TestRunConcurrent(t *testing.T) {
	gen := &fakeGen{image: base64.StdEncoding.EncodeToString(pngBytes(t, color.White))}
	r, _ := newRunner(t, gen, nil, 3)

	s := DefaultSettings()
	s.Steps = "10,20,30"
	res, err := r.Run(context.Background(), Input{
		Prompts:  []string{"a", "b", "c"},
		Settings: s,
		Image:    pngBytes(t, color.Black),
	})
	require.NoError(t, err)
	require.Len(t, res.Images, 9)
	for i, o := range res.Images {
		assert.Equal(t, i/3, o.PromptIndex)
		assert.Equal(t, i%3, o.ComboIndex)
	}
}

func TestRunFolderCollision(t *testing.T) {
	gen := &fakeGen{image: base64.StdEncoding.EncodeToString(pngBytes(t, color.White))}
	r, root := newRunner(t, gen, nil, 1)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lantern"), 0o755))

	res, err := r.Run(context.Background(), Input{
		Prompts: []string{"a"}, Settings: DefaultSettings(), Image: pngBytes(t, color.Black),
	})
	require.NoError(t, err)
	assert.Equal(t, "lantern-2", res.Folder)
}

func TestRunBackendFailure(t *testing.T) {
	boom := errors.New("connection refused")
	gen := &fakeGen{fail: boom}
	rec := &fakeRec{}
	r, _ := newRunner(t, gen, rec, 1)

	_, err := r.Run(context.Background(), Input{
		Prompts: []string{"a", "b"}, Settings: DefaultSettings(), Image: pngBytes(t, color.Black),
	})
	require.ErrorIs(t, err, boom)
	require.Len(t, rec.finished, 1)
	assert.ErrorIs(t, rec.finished[0], boom)
	assert.Empty(t, rec.images)
}

func TestRunRejectsBeforeSideEffects(t *testing.T) {
	gen := &fakeGen{}
	r, root := newRunner(t, gen, nil, 1)

	s := DefaultSettings()
	s.Steps = "abc"
	_, err := r.Run(context.Background(), Input{Prompts: []string{"a"}, Settings: s, Image: pngBytes(t, color.Black)})
	require.ErrorIs(t, err, params.ErrInvalidParameterValue)

	s = DefaultSettings()
	s.Weight = "1,NaN"
	_, err = r.Run(context.Background(), Input{Prompts: []string{"a"}, Settings: s, Image: pngBytes(t, color.Black)})
	require.ErrorIs(t, err, params.ErrInvalidParameterValue)

	_, err = r.Run(context.Background(), Input{Settings: DefaultSettings(), Image: pngBytes(t, color.Black)})
	require.ErrorIs(t, err, ErrNoPrompts)

	_, err = r.Run(context.Background(), Input{Prompts: []string{"a"}, Settings: DefaultSettings(), Image: []byte("nope")})
	require.ErrorIs(t, err, ErrBadImage)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, gen.reqs)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello-world", sanitize("Hello World"))
	assert.Equal(t, "run", sanitize("!!!"))
	assert.NotEmpty(t, WordNames(42)())
}
