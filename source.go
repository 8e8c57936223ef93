package textextractor

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"net/url"
	"os"
	"runtime"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dv00d00/expo-text-extractor/backend"
	"github.com/dv00d00/expo-text-extractor/geometry"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
)

// SourceKind tells how a Source's value is interpreted.
type SourceKind int

const (
	// SourceURI is a file path, file:// URI or Android content:// URI.
	SourceURI SourceKind = iota
	// SourceBase64 is a base64 payload, optionally with a data: URI prefix.
	SourceBase64
	// SourceBytes is an encoded image already in memory.
	SourceBytes
)

// Source is one image reference. Data is only used by SourceBytes.
type Source struct {
	Kind  SourceKind
	Value string
	Data  []byte
}

// FromURI references an image by path or URI.
func FromURI(uri string) Source { return Source{Kind: SourceURI, Value: uri} }

// FromBase64 references an image by its base64 payload.
func FromBase64(data string) Source { return Source{Kind: SourceBase64, Value: data} }

// FromBytes references an encoded image held in memory. data is not copied.
func FromBytes(data []byte) Source { return Source{Kind: SourceBytes, Data: data} }

const (
	formatHEIC = "heic"

	fileScheme    = "file://"
	contentScheme = "content://"
)

// load turns a Source into a validated backend.Image. Every failure here
// happens before the native recognizer is touched.
func load(callID string, src Source) (backend.Image, error) {
	switch src.Kind {
	case SourceURI:
		return loadURI(callID, src.Value)
	case SourceBase64:
		data, err := decodeBase64(callID, src.Value)
		if err != nil {
			return backend.Image{}, err
		}
		return inspect(callID, backend.Image{Data: data})
	case SourceBytes:
		return inspect(callID, backend.Image{Data: src.Data})
	default:
		return backend.Image{}, ocrerror.NewInvalidImageError(callID, fmt.Sprintf("unknown source kind %d", src.Kind), nil)
	}
}

func loadURI(callID, uri string) (backend.Image, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return backend.Image{}, ocrerror.NewInvalidImageError(callID, "empty image URI", nil)
	}

	if strings.HasPrefix(uri, contentScheme) {
		if runtime.GOOS != "android" {
			return backend.Image{}, ocrerror.NewUnsupportedFormatError(callID, "content URI").
				WithDetail("uri", uri)
		}
		// Only the Android content resolver can open these.
		return backend.Image{Path: uri}, nil
	}

	path := uri
	if strings.HasPrefix(uri, fileScheme) {
		u, err := url.Parse(uri)
		if err != nil {
			return backend.Image{}, ocrerror.NewInvalidImageError(callID, "malformed file URI", err).
				WithDetail("uri", uri)
		}
		path = u.Path
	} else if i := strings.Index(uri, "://"); i > 0 {
		return backend.Image{}, ocrerror.NewUnsupportedFormatError(callID, uri[:i]+" URI").
			WithDetail("uri", uri)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return backend.Image{}, ocrerror.NewInvalidImageError(callID, "file not found", err).
				WithDetail("path", path)
		case errors.Is(err, fs.ErrPermission):
			return backend.Image{}, ocrerror.NewPermissionDeniedError(callID, path, err)
		default:
			return backend.Image{}, ocrerror.NewInvalidImageError(callID, "file could not be read", err).
				WithDetail("path", path)
		}
	}
	return inspect(callID, backend.Image{Path: path, Data: data})
}

// decodeBase64 strips an optional data: URI prefix and whitespace, then
// tries the standard and URL-safe alphabets, padded and raw.
func decodeBase64(callID, payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, ocrerror.NewInvalidBase64Error(callID, fmt.Errorf("malformed data URI"))
		}
		payload = payload[comma+1:]
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, ocrerror.NewInvalidBase64Error(callID, fmt.Errorf("empty payload"))
	}

	var lastErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		data, err := enc.DecodeString(payload)
		if err == nil {
			if len(data) == 0 {
				break
			}
			return data, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("empty payload")
	}
	return nil, ocrerror.NewInvalidBase64Error(callID, lastErr)
}

// inspect identifies the format from magic bytes and decodes the header to
// learn the pixel size. HEIC is not decodable here and passes through.
func inspect(callID string, img backend.Image) (backend.Image, error) {
	if len(img.Data) == 0 {
		return img, ocrerror.NewInvalidImageError(callID, "image is empty", nil)
	}

	img.Format = sniffFormat(img.Data)
	switch img.Format {
	case "":
		return img, ocrerror.NewUnsupportedFormatError(callID, "unrecognized image data")
	case formatHEIC:
		return img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return img, ocrerror.NewInvalidImageError(callID, fmt.Sprintf("corrupt %s image", img.Format), err).
			WithDetail("format", img.Format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return img, ocrerror.NewInvalidImageError(callID, "image has no pixels", nil).
			WithDetail("format", img.Format)
	}
	img.Size = geometry.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}
	return img, nil
}

// sniffFormat detects the image format from magic bytes.
func sniffFormat(data []byte) string {
	if len(data) < 4 {
		return ""
	}

	switch {
	// PNG: 0x89 'P' 'N' 'G' 0x0D 0x0A 0x1A 0x0A
	case len(data) >= 8 && bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return "png"
	// JPEG: 0xFF 0xD8 0xFF
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "jpeg"
	case bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")):
		return "gif"
	// WebP: 'R' 'I' 'F' 'F' .... 'W' 'E' 'B' 'P'
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && string(data[8:12]) == "WEBP":
		return "webp"
	// TIFF: little-endian or big-endian byte order mark
	case bytes.HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}) || bytes.HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return "tiff"
	case bytes.HasPrefix(data, []byte("BM")):
		return "bmp"
	// HEIF family: size, "ftyp", major brand
	case len(data) >= 12 && string(data[4:8]) == "ftyp":
		switch string(data[8:12]) {
		case "heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1":
			return formatHEIC
		}
	}
	return ""
}
