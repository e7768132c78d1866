// Package qr builds QR payloads, renders them as images and decodes QR codes
// from uploaded images.
package qr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
)

// ErrEmptyPayload is returned when there is nothing to encode.
var ErrEmptyPayload = errors.New("please provide data to generate the QR code")

// Kind is the type of data a payload encodes.
type Kind string

const (
	KindText    Kind = "text"
	KindURL     Kind = "url"
	KindEmail   Kind = "email"
	KindWiFi    Kind = "wifi"
	KindContact Kind = "contact"
	KindOTP     Kind = "otp"
)

// Kinds lists the payload kinds in menu order.
var Kinds = []Kind{KindText, KindURL, KindEmail, KindWiFi, KindContact, KindOTP}

// Label is the human readable name of the kind.
func (k Kind) Label() string {
	switch k {
	case KindURL:
		return "URL"
	case KindEmail:
		return "Email"
	case KindWiFi:
		return "WiFi"
	case KindContact:
		return "Contact"
	case KindOTP:
		return "One-time password"
	default:
		return "Text"
	}
}

// ParseKind maps a form value to a Kind, defaulting to text.
func ParseKind(s string) Kind {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k
		}
	}
	return KindText
}

// WiFi encryption choices.
var WiFiEncryptions = []string{"WPA", "WEP", "None"}

// Fields carries every form input a payload kind may use.
type Fields struct {
	Text string
	URL  string

	Email   string
	Subject string
	Body    string

	SSID       string
	Password   string
	Encryption string

	FullName     string
	Organization string
	Address      string
	Phone        string
	Notes        string

	Issuer      string
	AccountName string
}

// Payload renders the text to encode for kind k.
func Payload(k Kind, f Fields) (string, error) {
	var data string
	switch k {
	case KindURL:
		data = f.URL
	case KindEmail:
		if f.Email == "" {
			return "", ErrEmptyPayload
		}
		data = fmt.Sprintf("mailto:%s?subject=%s&body=%s", f.Email, f.Subject, f.Body)
	case KindWiFi:
		if f.SSID == "" {
			return "", ErrEmptyPayload
		}
		enc := f.Encryption
		if enc == "" {
			enc = WiFiEncryptions[0]
		}
		data = fmt.Sprintf("WIFI:T:%s;S:%s;P:%s;;", enc, f.SSID, f.Password)
	case KindContact:
		if f.FullName == "" && f.Phone == "" && f.Email == "" {
			return "", ErrEmptyPayload
		}
		data = strings.Join([]string{
			"BEGIN:VCARD",
			"VERSION:3.0",
			"N:" + f.FullName,
			"ORG:" + f.Organization,
			"ADR:" + f.Address,
			"TEL:" + f.Phone,
			"EMAIL:" + f.Email,
			"NOTE:" + f.Notes,
			"END:VCARD",
		}, "\n")
	case KindOTP:
		if f.Issuer == "" || f.AccountName == "" {
			return "", ErrEmptyPayload
		}
		key, err := totp.Generate(totp.GenerateOpts{Issuer: f.Issuer, AccountName: f.AccountName})
		if err != nil {
			return "", fmt.Errorf("generating otp key: %w", err)
		}
		data = key.URL()
	default:
		data = f.Text
	}
	if data == "" {
		return "", ErrEmptyPayload
	}
	return data, nil
}
