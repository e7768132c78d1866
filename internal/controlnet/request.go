// Package controlnet talks to a Stable Diffusion web API (sdapi) running the
// ControlNet extension, blending a QR code into a generated image.
package controlnet

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"maps"
)

// Defaults for the checkpoint and ControlNet model.
const (
	DefaultModelName       = "icbinpICantBelieveIts_seco"
	DefaultModelHash       = "fa1224c923"
	DefaultControlNetModel = "control_v1p_sd15_qrcode_monster_v2 [5e5778cb]"
)

// Models names the checkpoint and ControlNet model a request targets.
type Models struct {
	Name       string
	Hash       string
	ControlNet string
}

func (m Models) withDefaults() Models {
	if m.Name == "" {
		m.Name = DefaultModelName
	}
	if m.Hash == "" {
		m.Hash = DefaultModelHash
	}
	if m.ControlNet == "" {
		m.ControlNet = DefaultControlNetModel
	}
	return m
}

// Request is a txt2img body with a single ControlNet unit.
type Request struct {
	Prompt string
	image  []byte
	models Models
	body   map[string]any
}

// NewRequest prepares a request for prompt conditioned on image. The image
// is re-encoded as PNG.
func NewRequest(prompt string, img []byte, models Models) (*Request, error) {
	src, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decoding control image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, fmt.Errorf("encoding control image: %w", err)
	}
	r := &Request{Prompt: prompt, image: buf.Bytes(), models: models.withDefaults()}
	r.build()
	return r, nil
}

func (r *Request) build() {
	r.body = map[string]any{
		"prompt":               r.Prompt,
		"negative_prompt":      "",
		"batch_size":           1,
		"cfg_scale":            7,
		"width":                512,
		"height":               512,
		"sampler_name":         "DPM++ 2M Karras",
		"steps":                15,
		"enable_hr":            false,
		"hr_scale":             2,
		"hr_upscaler":          "Latent",
		"hr_second_pass_steps": 10,
		"denoising_strength":   1,
		"sd_model_name":        r.models.Name,
		"sd_model_hash":        r.models.Hash,
		"seed":                 -1,
		"seed_resize_from_w":   -1,
		"seed_resize_from_h":   -1,
		"restore_faces":        false,
		"alwayson_scripts": map[string]any{
			"controlnet": map[string]any{
				"args": []map[string]any{{
					"enabled":        true,
					"module":         "invert (from white bg & black line)",
					"model":          r.models.ControlNet,
					"weight":         1.25,
					"image":          base64.StdEncoding.EncodeToString(r.image),
					"resize_mode":    "Crop and Resize",
					"lowvram":        false,
					"processor_res":  512,
					"guidance_start": 0.0,
					"guidance_end":   0.75,
					"control_mode":   "Balanced",
					"pixel_perfect":  false,
				}},
			},
		},
	}
}

// UpdateSD merges top-level txt2img fields.
func (r *Request) UpdateSD(u map[string]any) {
	maps.Copy(r.body, u)
}

// UpdateCN merges fields into the ControlNet unit.
func (r *Request) UpdateCN(u map[string]any) {
	maps.Copy(r.unit(), u)
}

func (r *Request) unit() map[string]any {
	scripts := r.body["alwayson_scripts"].(map[string]any)
	cn := scripts["controlnet"].(map[string]any)
	return cn["args"].([]map[string]any)[0]
}

// Body returns the JSON body. The map is shared with the request.
func (r *Request) Body() map[string]any { return r.body }

// Field returns a top-level body value.
func (r *Request) Field(name string) any { return r.body[name] }

// UnitField returns a ControlNet unit value.
func (r *Request) UnitField(name string) any { return r.unit()[name] }
