package qr

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"strings"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

// encodeSVG draws one vector shape per dark module. The module matrix is
// read back from a 1px-per-module raster of the code.
func encodeSVG(qrc *qrcode.QRCode, opts Options) ([]byte, error) {
	if qrc.Dimension() <= 0 {
		return nil, fmt.Errorf("invalid QR matrix dimension")
	}

	buf := &bytes.Buffer{}
	w := standard.NewWithWriter(nopCloser{buf},
		standard.WithQRWidth(1),
		standard.WithBorderWidth(0),
		standard.WithBgColor(color.RGBA{255, 255, 255, 255}),
		standard.WithFgColor(color.RGBA{0, 0, 0, 255}),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	)
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("failed to generate QR for matrix extraction: %w", err)
	}
	img, err := png.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode matrix image: %w", err)
	}

	module := int(opts.ModuleSize)
	dim := img.Bounds().Dx()
	offset := opts.Border * module
	total := dim*module + 2*offset

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`,
		total, total, total, total)
	if opts.Bg.A > 0 {
		fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="%s"/>`, total, total, HexColor(opts.Bg))
	}

	fill := HexColor(opts.Fg)
	b := img.Bounds()
	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if r >= 0x8000 {
				continue
			}
			mx := offset + x*module
			my := offset + y*module
			if opts.Circle {
				rad := float64(module) / 2
				fmt.Fprintf(&sb, `<circle cx="%g" cy="%g" r="%g" fill="%s"/>`,
					float64(mx)+rad, float64(my)+rad, rad, fill)
				continue
			}
			fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
				mx, my, module, module, fill)
		}
	}
	sb.WriteString(`</svg>`)
	return []byte(sb.String()), nil
}
