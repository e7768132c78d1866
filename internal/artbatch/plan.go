// Package artbatch runs AI QR batches: every prompt crossed with every
// combination of the numeric generation parameters.
package artbatch

import (
	"fmt"
	"math"
	"strings"

	"github.com/cristianadrielbraun/qrart/internal/controlnet"
	"github.com/cristianadrielbraun/qrart/internal/params"
)

// Parameter names. The order is the expansion order.
const (
	ParamSteps         = "steps"
	ParamWeight        = "weight"
	ParamGuidanceStart = "guidance_start"
	ParamGuidanceEnd   = "guidance_end"
	ParamHRSteps       = "hr_second_pass_steps"
)

// Settings are the raw form values. Each numeric field may list several
// comma separated values to permutate over; an empty field keeps the
// backend default.
type Settings struct {
	Steps         string
	Weight        string
	GuidanceStart string
	GuidanceEnd   string
	HRSteps       string
	EnableHR      bool
}

// DefaultSettings are the values the forms start with.
func DefaultSettings() Settings {
	return Settings{
		Steps:         "20",
		Weight:        "1",
		GuidanceStart: "0",
		GuidanceEnd:   "1",
		HRSteps:       "0",
	}
}

// ParamSet converts the settings into a parameter set. Hi-res steps are
// pinned to 0 when hi-res is disabled.
func (s Settings) ParamSet() *params.Set {
	hr := s.HRSteps
	if !s.EnableHR {
		hr = "0"
	}
	set := params.NewSet()
	for _, kv := range []struct{ name, raw string }{
		{ParamSteps, s.Steps},
		{ParamWeight, s.Weight},
		{ParamGuidanceStart, s.GuidanceStart},
		{ParamGuidanceEnd, s.GuidanceEnd},
		{ParamHRSteps, hr},
	} {
		if strings.TrimSpace(kv.raw) == "" {
			set.Put(kv.name, params.Absent())
			continue
		}
		set.Put(kv.name, params.List(kv.raw))
	}
	return set
}

// Job is one backend call.
type Job struct {
	Index       int
	PromptIndex int
	ComboIndex  int
	Prompt      string
	Params      params.Combination
	sd          map[string]any
	cn          map[string]any
}

// FileName is where the job's image is saved inside the run folder.
func (j Job) FileName() string {
	return fmt.Sprintf("gen_image_%d_%d.png", j.PromptIndex, j.ComboIndex)
}

// Apply copies the job's parameters onto req.
func (j Job) Apply(req *controlnet.Request) {
	req.UpdateSD(j.sd)
	req.UpdateCN(j.cn)
}

type numRange struct {
	min, max float64
	integer  bool
}

var ranges = map[string]numRange{
	ParamSteps:         {min: 1, max: 150, integer: true},
	ParamHRSteps:       {min: 0, max: 150, integer: true},
	ParamWeight:        {min: 0, max: 2},
	ParamGuidanceStart: {min: 0, max: 1},
	ParamGuidanceEnd:   {min: 0, max: 1},
}

// Plan expands the settings and crosses them with prompts, prompt-major.
// Every combination is converted and range checked before any job exists.
func Plan(prompts []string, s Settings) ([]Job, error) {
	combos := params.Expand(s.ParamSet())

	type resolved struct{ sd, cn map[string]any }
	conv := make([]resolved, len(combos))
	for i, c := range combos {
		sd := map[string]any{"enable_hr": s.EnableHR}
		cn := map[string]any{}
		for _, name := range []string{ParamSteps, ParamHRSteps} {
			n, ok, err := c.Int(name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if err := checkRange(name, float64(n)); err != nil {
				return nil, err
			}
			sd[name] = n
		}
		for _, name := range []string{ParamWeight, ParamGuidanceStart, ParamGuidanceEnd} {
			f, ok, err := c.Float(name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if err := checkRange(name, f); err != nil {
				return nil, err
			}
			cn[name] = f
		}
		conv[i] = resolved{sd: sd, cn: cn}
	}

	jobs := make([]Job, 0, len(prompts)*len(combos))
	for pi, p := range prompts {
		for ci, c := range combos {
			jobs = append(jobs, Job{
				Index:       len(jobs),
				PromptIndex: pi,
				ComboIndex:  ci,
				Prompt:      p,
				Params:      c,
				sd:          conv[ci].sd,
				cn:          conv[ci].cn,
			})
		}
	}
	return jobs, nil
}

func checkRange(name string, v float64) error {
	r, ok := ranges[name]
	if !ok {
		return nil
	}
	if math.IsNaN(v) || v < r.min || v > r.max {
		if r.integer {
			return fmt.Errorf("parameter %q: %w: %v outside %d-%d", name, params.ErrInvalidParameterValue, v, int(r.min), int(r.max))
		}
		return fmt.Errorf("parameter %q: %w: %v outside %.2f-%.2f", name, params.ErrInvalidParameterValue, v, r.min, r.max)
	}
	return nil
}
