// Package pages assembles full HTML pages from the shared components.
package pages

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cristianadrielbraun/qrart/internal/artbatch"
	"github.com/cristianadrielbraun/qrart/internal/qr"
	"github.com/cristianadrielbraun/qrart/internal/store"
	"github.com/cristianadrielbraun/qrart/web/components"
)

// Image sources for a batch.
const (
	SourceGenerated = "generated"
	SourceUpload    = "upload"
)

// GenerateView is the state of the Generate QR Code page.
type GenerateView struct {
	Form        QRForm
	ImageURL    string
	DownloadURL string
	Error       string
}

// DecodeView is the state of the Decode QR Code page.
type DecodeView struct {
	Results  []qr.Result
	ImageURL string
	Error    string
}

// AIView is the state of the New AI QR page.
type AIView struct {
	Prompts  []store.Prompt
	Source   string
	Form     QRForm
	QRImage  string
	Settings artbatch.Settings
	Error    string
}

// AIResultView is a finished batch.
type AIResultView struct {
	Folder string
	Images []artbatch.Output
	Error  string
}

// SettingsFrom reads generation settings from form values.
func SettingsFrom(v url.Values) artbatch.Settings {
	return artbatch.Settings{
		Steps:         v.Get("steps"),
		Weight:        v.Get("weight"),
		GuidanceStart: v.Get("guidance_start"),
		GuidanceEnd:   v.Get("guidance_end"),
		HRSteps:       v.Get("hr_second_pass_steps"),
		EnableHR:      v.Get("enable_hr") != "",
	}
}

// FormatParams renders parameters as "k=v" pairs in the order of keys.
// Names missing from keys follow in alphabetical order.
func FormatParams(keys []string, p map[string]any) string {
	order := make([]string, 0, len(p))
	for _, k := range keys {
		if _, ok := p[k]; ok {
			order = append(order, k)
		}
	}
	var rest []string
	for k := range p {
		if !slices.Contains(order, k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	pairs := make([]string, len(order))
	for i, k := range order {
		pairs[i] = k + "=" + formatValue(p[k])
	}
	return strings.Join(pairs, ", ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "default"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func runPath(folder string) string {
	return "/runs/" + url.PathEscape(folder)
}

func runFilePath(folder, file string) string {
	return runPath(folder) + "/" + url.PathEscape(file)
}

func deletePromptPath(id int64) string {
	return fmt.Sprintf("/ai/prompts/%d/delete", id)
}

func runSummary(r store.Run) string {
	return fmt.Sprintf("%s · %s · %d images · %s", r.Source, r.Status, r.Total, r.CreatedAt.Format("2006-01-02 15:04"))
}

func caption(prompt string, keys []string, p map[string]any) string {
	return prompt + " " + FormatParams(keys, p)
}

func sourceOptions(source string) []components.Option {
	return []components.Option{
		{Value: SourceGenerated, Label: "Generate QR Code", Selected: source != SourceUpload},
		{Value: SourceUpload, Label: "Upload QR Code", Selected: source == SourceUpload},
	}
}
