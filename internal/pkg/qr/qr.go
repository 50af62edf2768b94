// Package qr renders otpauth URIs as QR code images for authenticator apps.
package qr

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/pquerna/otp"
)

const defaultSize = 256

// DataURL renders the otpauth URI as a PNG data URL suitable for an <img> tag.
func DataURL(otpauthURI string) (string, error) {
	key, err := otp.NewKeyFromURL(otpauthURI)
	if err != nil {
		return "", err
	}

	img, err := key.Image(defaultSize, defaultSize)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
