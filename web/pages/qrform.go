package pages

import (
	"net/url"

	"github.com/cristianadrielbraun/qrart/internal/qr"
	"github.com/cristianadrielbraun/qrart/web/components"
)

// QRForm is the state of the "type of data" form.
type QRForm struct {
	Kind   qr.Kind
	Fields qr.Fields
	Color  string
}

// QRFormFrom reads the form fields from request values.
func QRFormFrom(v url.Values) QRForm {
	f := QRForm{
		Kind: qr.ParseKind(v.Get("kind")),
		Fields: qr.Fields{
			Text:         v.Get("text"),
			URL:          v.Get("url"),
			Email:        v.Get("email"),
			Subject:      v.Get("subject"),
			Body:         v.Get("body"),
			SSID:         v.Get("ssid"),
			Password:     v.Get("password"),
			Encryption:   v.Get("encryption"),
			FullName:     v.Get("full_name"),
			Organization: v.Get("organization"),
			Address:      v.Get("address"),
			Phone:        v.Get("phone"),
			Notes:        v.Get("notes"),
			Issuer:       v.Get("issuer"),
			AccountName:  v.Get("account"),
		},
		Color: v.Get("color"),
	}
	if f.Color == "" {
		f.Color = "#000000"
	}
	return f
}

func kindOptions(selected qr.Kind) []components.Option {
	opts := make([]components.Option, len(qr.Kinds))
	for i, k := range qr.Kinds {
		opts[i] = components.Option{Value: string(k), Label: k.Label(), Selected: k == selected}
	}
	return opts
}

func encryptionOptions(selected string) []components.Option {
	opts := make([]components.Option, len(qr.WiFiEncryptions))
	for i, e := range qr.WiFiEncryptions {
		opts[i] = components.Option{Value: e, Label: e, Selected: e == selected}
	}
	return opts
}
