package artbatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cristianadrielbraun/qrart/internal/controlnet"
	"github.com/cristianadrielbraun/qrart/internal/store"
)

// StartImageName is the file the control image is saved as in a run folder.
const StartImageName = "_starting_image.png"

// ErrNoPrompts is returned when a batch has nothing to generate.
var ErrNoPrompts = errors.New("add at least one prompt before processing")

// ErrBadImage is returned when the control image cannot be decoded.
var ErrBadImage = errors.New("control image is not a readable image")

// Generator produces images from controlnet requests.
type Generator interface {
	Txt2Img(ctx context.Context, req *controlnet.Request) (*controlnet.Response, error)
}

// Recorder keeps the run history.
type Recorder interface {
	CreateRun(ctx context.Context, folder, source string, total int) (int64, error)
	AddImage(ctx context.Context, img store.Image) error
	FinishRun(ctx context.Context, id int64, runErr error) error
}

// Options configures a Runner.
type Options struct {
	Generator Generator
	Recorder  Recorder
	ImagesDir string
	Models    controlnet.Models
	// MaxConcurrent caps in-flight backend calls. 1 keeps generation order.
	MaxConcurrent int
	Names         NameSource
	Logger        logrus.FieldLogger
}

// Runner executes batches.
type Runner struct {
	gen    Generator
	rec    Recorder
	root   string
	models controlnet.Models
	limit  int
	names  NameSource
	log    logrus.FieldLogger
}

// New returns a Runner.
func New(opts Options) *Runner {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.Names == nil {
		opts.Names = WordNames(0)
	}
	if opts.ImagesDir == "" {
		opts.ImagesDir = "images"
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		gen:    opts.Generator,
		rec:    opts.Recorder,
		root:   opts.ImagesDir,
		models: opts.Models,
		limit:  opts.MaxConcurrent,
		names:  opts.Names,
		log:    log.WithField("component", "artbatch"),
	}
}

// Progress is reported after every finished job.
type Progress struct {
	Completed int
	Total     int
	Job       Job
}

// Percent is the completed share, 0-100.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 100
	}
	return p.Completed * 100 / p.Total
}

// Input describes one batch.
type Input struct {
	Prompts  []string
	Settings Settings
	// Image is the control image, any decodable raster format.
	Image []byte
	// Source labels where the image came from ("generated" or "upload").
	Source     string
	OnProgress func(Progress)
}

// Output is one generated image.
type Output struct {
	PromptIndex int
	ComboIndex  int
	Prompt      string
	Params      map[string]any
	// Keys lists the parameter names in declaration order.
	Keys        []string
	File        string
}

// Result summarizes a finished batch.
type Result struct {
	Folder string
	Dir    string
	Images []Output
}

// Run validates the input, creates the run folder and generates every
// image. The first failing job cancels the rest.
func (r *Runner) Run(ctx context.Context, in Input) (*Result, error) {
	if len(in.Prompts) == 0 {
		return nil, ErrNoPrompts
	}
	jobs, err := Plan(in.Prompts, in.Settings)
	if err != nil {
		return nil, err
	}
	start, err := toPNG(in.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	folder, dir, err := makeRunDir(r.root, r.names)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, StartImageName), start, 0o644); err != nil {
		return nil, fmt.Errorf("saving control image: %w", err)
	}

	log := r.log.WithFields(logrus.Fields{"folder": folder, "jobs": len(jobs)})
	log.Info("images will be saved to run folder")

	var runID int64
	if r.rec != nil {
		if runID, err = r.rec.CreateRun(ctx, folder, in.Source, len(jobs)); err != nil {
			return nil, err
		}
	}

	outputs, err := r.execute(ctx, jobs, start, dir, runID, in.OnProgress)
	if r.rec != nil {
		if ferr := r.rec.FinishRun(context.WithoutCancel(ctx), runID, err); ferr != nil {
			log.WithError(ferr).Warn("could not record run status")
		}
	}
	if err != nil {
		log.WithError(err).Error("batch failed")
		return &Result{Folder: folder, Dir: dir, Images: compact(outputs)}, err
	}
	log.Info("batch finished")
	return &Result{Folder: folder, Dir: dir, Images: outputs}, nil
}

func (r *Runner) execute(ctx context.Context, jobs []Job, start []byte, dir string, runID int64, onProgress func(Progress)) ([]Output, error) {
	outputs := make([]Output, len(jobs))
	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := r.runJob(gctx, job, start, dir)
			if err != nil {
				return fmt.Errorf("prompt %q, combination %d: %w", job.Prompt, job.ComboIndex, err)
			}
			if r.rec != nil {
				img := store.Image{
					RunID: runID, PromptIndex: job.PromptIndex, ComboIndex: job.ComboIndex,
					Prompt: job.Prompt, Params: out.Params, ParamKeys: out.Keys, File: out.File,
				}
				if err := r.rec.AddImage(gctx, img); err != nil {
					return err
				}
			}

			mu.Lock()
			outputs[job.Index] = out
			completed++
			p := Progress{Completed: completed, Total: len(jobs), Job: job}
			if onProgress != nil {
				onProgress(p)
			}
			mu.Unlock()

			r.log.WithFields(logrus.Fields{
				"prompt":   job.Prompt,
				"file":     out.File,
				"progress": p.Percent(),
			}).Debug("image generated")
			return nil
		})
	}
	err := g.Wait()
	return outputs, err
}

func (r *Runner) runJob(ctx context.Context, job Job, start []byte, dir string) (Output, error) {
	req, err := controlnet.NewRequest(job.Prompt, start, r.models)
	if err != nil {
		return Output{}, err
	}
	job.Apply(req)

	resp, err := r.gen.Txt2Img(ctx, req)
	if err != nil {
		return Output{}, err
	}
	raw, err := resp.Image(0)
	if err != nil {
		return Output{}, err
	}
	data, err := toPNG(raw)
	if err != nil {
		return Output{}, fmt.Errorf("reading generated image: %w", err)
	}
	name := job.FileName()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return Output{}, fmt.Errorf("saving generated image: %w", err)
	}
	return Output{
		PromptIndex: job.PromptIndex,
		ComboIndex:  job.ComboIndex,
		Prompt:      job.Prompt,
		Params:      job.Params.Map(),
		Keys:        job.Params.Keys(),
		File:        name,
	}, nil
}

func toPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// compact drops the slots of jobs that never finished.
func compact(outs []Output) []Output {
	var kept []Output
	for _, o := range outs {
		if o.File != "" {
			kept = append(kept, o)
		}
	}
	return kept
}
