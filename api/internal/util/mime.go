package util

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MakeDataURL returns data:<mime>;base64,<payload> using standard padded base64.
func MakeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a data URL produced by MakeDataURL back into its MIME type and bytes.
func DecodeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return nil, "", fmt.Errorf("not a data URL")
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return nil, "", fmt.Errorf("data URL without payload")
	}
	meta := s[len("data:"):idx] // "<mime>;base64"
	mime, enc, ok := strings.Cut(meta, ";")
	if !ok || enc != "base64" {
		return nil, "", fmt.Errorf("data URL is not base64 encoded")
	}
	b, err := base64.StdEncoding.DecodeString(s[idx+1:])
	if err != nil {
		return nil, "", err
	}
	return b, mime, nil
}

// SniffMimeHTTP detects the three inline image formats by magic bytes.
func SniffMimeHTTP(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "image/jpeg"
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "image/png"
	}
	// RIFF....WEBP
	if len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP" {
		return "image/webp"
	}
	return "application/octet-stream"
}

func TruncateBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
