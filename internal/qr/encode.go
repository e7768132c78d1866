package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strconv"
	"strings"

	skip2 "github.com/skip2/go-qrcode"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

// Format is an output image format.
type Format string

const (
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
	FormatSVG Format = "svg"
)

// ParseFormat normalizes a format name, defaulting to PNG.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return FormatJPG
	case "svg":
		return FormatSVG
	default:
		return FormatPNG
	}
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatJPG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// Ext is the file extension of f, without the dot.
func (f Format) Ext() string { return string(f) }

// Options controls how a QR code is rendered.
type Options struct {
	Format Format
	Fg     color.RGBA
	Bg     color.RGBA
	// ModuleSize is the side of one module in pixels.
	ModuleSize uint8
	// Border is the quiet zone, in modules.
	Border int
	Circle bool
}

// DefaultOptions renders black modules of 10px on white with a 4 module
// quiet zone.
func DefaultOptions() Options {
	return Options{
		Format:     FormatPNG,
		Fg:         color.RGBA{0, 0, 0, 255},
		Bg:         color.RGBA{255, 255, 255, 255},
		ModuleSize: 10,
		Border:     4,
	}
}

// nopCloser lets the standard writer target an in-memory buffer.
type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

// Encode renders payload as an image in opts.Format.
func Encode(payload string, opts Options) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	if opts.ModuleSize == 0 {
		opts.ModuleSize = DefaultOptions().ModuleSize
	}
	qrc, err := qrcode.NewWith(payload, qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium))
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	if opts.Format == FormatSVG {
		return encodeSVG(qrc, opts)
	}

	imgOpts := []standard.ImageOption{
		standard.WithQRWidth(opts.ModuleSize),
		standard.WithBorderWidth(opts.Border * int(opts.ModuleSize)),
		standard.WithFgColor(opts.Fg),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	}
	if opts.Bg.A == 0 {
		imgOpts = append(imgOpts, standard.WithBgTransparent())
	} else {
		imgOpts = append(imgOpts, standard.WithBgColor(opts.Bg))
	}
	if opts.Circle {
		imgOpts = append(imgOpts, standard.WithCircleShape())
	}

	buf := &bytes.Buffer{}
	w := standard.NewWithWriter(nopCloser{buf}, imgOpts...)
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("failed to generate QR code image: %w", err)
	}

	if opts.Format == FormatJPG {
		return pngToJPEG(buf.Bytes(), opts.Bg)
	}
	return buf.Bytes(), nil
}

// pngToJPEG composites the PNG onto an opaque background and re-encodes it.
func pngToJPEG(data []byte, bg color.RGBA) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode QR image: %w", err)
	}
	solid := color.RGBA{bg.R, bg.G, bg.B, 255}
	if bg.A == 0 {
		solid = color.RGBA{255, 255, 255, 255}
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, &image.Uniform{C: solid}, image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)

	var jb bytes.Buffer
	if err := jpeg.Encode(&jb, out, &jpeg.Options{Quality: 92}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return jb.Bytes(), nil
}

// Terminal renders payload as a compact block-character string.
func Terminal(payload string) (string, error) {
	if payload == "" {
		return "", ErrEmptyPayload
	}
	q, err := skip2.New(payload, skip2.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}

// ParseColor parses "#rrggbb" (or "transparent"), returning def when the
// value is empty or malformed.
func ParseColor(param string, def color.RGBA) color.RGBA {
	if param == "" {
		return def
	}
	if strings.EqualFold(param, "transparent") {
		return color.RGBA{0, 0, 0, 0}
	}
	param = strings.TrimPrefix(param, "#")
	if len(param) != 6 {
		return def
	}
	r, err1 := strconv.ParseUint(param[0:2], 16, 8)
	g, err2 := strconv.ParseUint(param[2:4], 16, 8)
	b, err3 := strconv.ParseUint(param[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return def
	}
	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}
}

// HexColor formats c as "#rrggbb".
func HexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
