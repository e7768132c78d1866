package qr

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload(t *testing.T) {
	tests := map[string]struct {
		kind    Kind
		fields  Fields
		want    string
		wantErr error
	}{
		"text": {
			kind:   KindText,
			fields: Fields{Text: "hello world"},
			want:   "hello world",
		},
		"url": {
			kind:   KindURL,
			fields: Fields{URL: "https://example.com"},
			want:   "https://example.com",
		},
		"email": {
			kind:   KindEmail,
			fields: Fields{Email: "a@b.c", Subject: "Hi", Body: "Body text"},
			want:   "mailto:a@b.c?subject=Hi&body=Body text",
		},
		"wifi": {
			kind:   KindWiFi,
			fields: Fields{SSID: "home", Password: "secret", Encryption: "WEP"},
			want:   "WIFI:T:WEP;S:home;P:secret;;",
		},
		"wifi defaults to WPA": {
			kind:   KindWiFi,
			fields: Fields{SSID: "home"},
			want:   "WIFI:T:WPA;S:home;P:;;",
		},
		"contact": {
			kind: KindContact,
			fields: Fields{
				FullName: "Ada Lovelace", Organization: "Engines", Address: "London",
				Phone: "+44 1", Email: "ada@example.com", Notes: "first",
			},
			want: "BEGIN:VCARD\nVERSION:3.0\nN:Ada Lovelace\nORG:Engines\nADR:London\nTEL:+44 1\nEMAIL:ada@example.com\nNOTE:first\nEND:VCARD",
		},
		"empty text": {
			kind:    KindText,
			wantErr: ErrEmptyPayload,
		},
		"email without address": {
			kind:    KindEmail,
			fields:  Fields{Subject: "x"},
			wantErr: ErrEmptyPayload,
		},
		"otp without account": {
			kind:    KindOTP,
			fields:  Fields{Issuer: "qrart"},
			wantErr: ErrEmptyPayload,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Payload(tt.kind, tt.fields)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayloadOTP(t *testing.T) {
	got, err := Payload(KindOTP, Fields{Issuer: "qrart", AccountName: "ada@example.com"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "otpauth://totp/"))
	assert.Contains(t, got, "issuer=qrart")
	assert.Contains(t, got, "secret=")
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindWiFi, ParseKind(" WiFi "))
	assert.Equal(t, KindText, ParseKind("bogus"))
	assert.Equal(t, "Contact", KindContact.Label())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := []string{
		"hello",
		"https://example.com/path?q=1",
		"WIFI:T:WPA;S:home;P:secret;;",
	}
	formats := []Format{FormatPNG, FormatJPG, FormatSVG}

	for _, f := range formats {
		for _, p := range payloads {
			t.Run(string(f)+"/"+p, func(t *testing.T) {
				opts := DefaultOptions()
				opts.Format = f
				opts.Fg = ParseColor("#1a237e", color.RGBA{})

				data, err := Encode(p, opts)
				require.NoError(t, err)
				require.NotEmpty(t, data)

				results, err := Decode(bytes.NewReader(data))
				require.NoError(t, err)
				require.Len(t, results, 1)
				assert.Equal(t, p, results[0].Text)
			})
		}
	}
}

func TestEncodePNGGeometry(t *testing.T) {
	data, err := Encode("hi", DefaultOptions())
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, cfg.Width, cfg.Height)
	// version 1 is 21 modules, plus a 4 module quiet zone on each side
	assert.Equal(t, (21+8)*10, cfg.Width)
}

func TestEncodeCircle(t *testing.T) {
	opts := DefaultOptions()
	opts.Circle = true
	data, err := Encode("circles", opts)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	opts.Format = FormatSVG
	svg, err := Encode("circles", opts)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<circle")
}

func TestEncodeEmpty(t *testing.T) {
	_, err := Encode("", DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyPayload)
	_, err = Terminal("")
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestTerminal(t *testing.T) {
	s, err := Terminal("hello")
	require.NoError(t, err)
	assert.Greater(t, len(strings.Split(s, "\n")), 10)
}

func TestDecodeOTP(t *testing.T) {
	uri := "otpauth://totp/Example:alice@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Example"
	data, err := Encode(uri, DefaultOptions())
	require.NoError(t, err)

	results, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].OTP)
	assert.Equal(t, "totp", results[0].OTP.Type)
	assert.Equal(t, "Example", results[0].OTP.Issuer)
	assert.Equal(t, "alice@example.com", results[0].OTP.AccountName)
}

func TestDecodeSeveralCodes(t *testing.T) {
	var codes []image.Image
	for _, p := range []string{"first", "second"} {
		data, err := Encode(p, DefaultOptions())
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		codes = append(codes, img)
	}

	w, h := codes[0].Bounds().Dx(), codes[0].Bounds().Dy()
	canvas := image.NewRGBA(image.Rect(0, 0, 2*w+40, h+40))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(20, 20, 20+w, 20+h), codes[0], codes[0].Bounds().Min, draw.Src)
	draw.Draw(canvas, image.Rect(20+w, 20, 20+2*w, 20+h), codes[1], codes[1].Bounds().Min, draw.Src)

	results, err := DecodeImage(canvas)
	require.NoError(t, err)
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	assert.ElementsMatch(t, []string{"first", "second"}, texts)
}

func TestDecodeNoQRCode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	_, err := Decode(&buf)
	assert.ErrorIs(t, err, ErrNoQRCode)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(strings.NewReader("definitely not an image"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoQRCode)
}

func TestParseColor(t *testing.T) {
	def := color.RGBA{1, 2, 3, 255}
	tests := map[string]color.RGBA{
		"":            def,
		"#ff0000":     {255, 0, 0, 255},
		"00ff00":      {0, 255, 0, 255},
		"transparent": {0, 0, 0, 0},
		"#fff":        def,
		"#zzzzzz":     def,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseColor(in, def), "input %q", in)
	}
	assert.Equal(t, "#1a237e", HexColor(color.RGBA{0x1a, 0x23, 0x7e, 255}))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJPG, ParseFormat("JPEG"))
	assert.Equal(t, FormatSVG, ParseFormat("svg"))
	assert.Equal(t, FormatPNG, ParseFormat(""))
	assert.Equal(t, "image/svg+xml", FormatSVG.ContentType())
}
