package web

import (
	"bytes"
	"net/http"

	"github.com/vbonduro/freezerinv/internal/domain"
)

// allowedMediaTypes is the set of MIME types accepted for uploads.
var allowedMediaTypes = map[string]domain.MediaKind{
	"image/jpeg":       domain.MediaImage,
	"image/png":        domain.MediaImage,
	"image/gif":        domain.MediaImage,
	"image/webp":       domain.MediaImage,
	"video/mp4":        domain.MediaVideo,
	"video/quicktime":  domain.MediaVideo,
	"video/webm":       domain.MediaVideo,
	"video/x-matroska": domain.MediaVideo,
	"video/x-msvideo":  domain.MediaVideo,
}

var ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// isRIFF reports whether data is a RIFF container of the given form type.
func isRIFF(data []byte, form string) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == form
}

// sniffMIME identifies uploads by magic bytes. Containers the stdlib sniffer
// misses or lumps together are checked first.
func sniffMIME(data []byte) string {
	switch {
	case isRIFF(data, "WEBP"):
		return "image/webp"
	case isRIFF(data, "AVI "):
		return "video/x-msvideo"
	case len(data) >= 12 && string(data[4:8]) == "ftyp":
		switch string(data[8:12]) {
		case "qt  ":
			return "video/quicktime"
		case "heic", "heix", "mif1", "avif":
			return "image/heif"
		}
		return "video/mp4"
	case bytes.HasPrefix(data, ebmlMagic):
		if bytes.Contains(data[:min(len(data), 64)], []byte("matroska")) {
			return "video/x-matroska"
		}
		return "video/webm"
	}
	return http.DetectContentType(data)
}

// allowedMedia returns the detected MIME type and media kind, or ok=false
// when the upload is not an accepted format.
func allowedMedia(data []byte) (mime string, kind domain.MediaKind, ok bool) {
	mime = sniffMIME(data)
	kind, ok = allowedMediaTypes[mime]
	if !ok {
		return "", 0, false
	}
	return mime, kind, true
}
