package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/makiuchi-d/gozxing"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/pquerna/otp"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrNoQRCode is returned when an image holds no readable QR code.
var ErrNoQRCode = errors.New("no valid QR code found in the image")

// maxSVGSide caps the raster size of uploaded SVG documents.
const maxSVGSide = 2048

// Result is one decoded QR code.
type Result struct {
	Text string
	// OTP is set when Text is an otpauth:// URI.
	OTP *OTPInfo
}

// OTPInfo describes an otpauth key found in a QR code.
type OTPInfo struct {
	Type        string
	Issuer      string
	AccountName string
}

// Decode reads an image (PNG, JPEG, GIF, BMP, WebP or SVG) and returns the QR
// codes it contains.
func Decode(r io.Reader) ([]Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	img, err := LoadImage(data)
	if err != nil {
		return nil, err
	}
	return DecodeImage(img)
}

// LoadImage decodes raster formats through the image registry and
// rasterizes SVG documents.
func LoadImage(data []byte) (image.Image, error) {
	if isSVG(data) {
		return rasterizeSVG(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// DecodeImage scans img for every QR code it holds. When the multi-code
// detector finds nothing, the single-code reader retries, last of all
// treating the image as a pure barcode.
func DecodeImage(img image.Image) ([]Result, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("creating bitmap: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	found, err := multiqr.NewQRCodeMultiReader().DecodeMultiple(bmp, hints)
	if err == nil && len(found) > 0 {
		out := make([]Result, 0, len(found))
		for _, res := range found {
			out = append(out, newResult(res.GetText()))
		}
		return out, nil
	}

	reader := qrcode.NewQRCodeReader()
	res, err := reader.Decode(bmp, hints)
	if err != nil {
		hints[gozxing.DecodeHintType_PURE_BARCODE] = true
		res, err = reader.Decode(bmp, hints)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoQRCode, err)
	}
	return []Result{newResult(res.GetText())}, nil
}

func newResult(text string) Result {
	out := Result{Text: text}
	if strings.HasPrefix(text, "otpauth://") {
		if key, err := otp.NewKeyFromURL(text); err == nil {
			out.OTP = &OTPInfo{
				Type:        key.Type(),
				Issuer:      key.Issuer(),
				AccountName: key.AccountName(),
			}
		}
	}
	return out
}

func isSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	s := strings.ToLower(string(head))
	return strings.Contains(s, "<svg")
}

// rasterizeSVG draws the document on a white canvas.
func rasterizeSVG(data []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing svg: %w", err)
	}
	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("parsing svg: empty view box")
	}
	if w > maxSVGSide || h > maxSVGSide {
		scale := float64(maxSVGSide) / float64(max(w, h))
		w, h = int(float64(w)*scale), int(float64(h)*scale)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return rgba, nil
}
