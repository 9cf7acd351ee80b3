// Package ticket issues fest ticket identifiers and their QR code images.
package ticket

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yeqown/go-qrcode"
)

// NewID returns a fest ticket identifier like "FEL-3F9A12BC". Uniqueness is
// enforced by the database; the uuid prefix makes collisions practically
// impossible anyway.
func NewID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "FEL-" + strings.ToUpper(raw[:8])
}

// QRDataURL renders the payload as a PNG QR code and returns it as a data
// URL, ready to embed in API responses and ticket emails.
func QRDataURL(payload string) (string, error) {
	qrc, err := qrcode.New(payload, qrcode.WithBuiltinImageEncoder(qrcode.PNG_FORMAT))
	if err != nil {
		return "", fmt.Errorf("qrcode.New -> %w", err)
	}

	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return "", fmt.Errorf("qrc.SaveTo -> %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
