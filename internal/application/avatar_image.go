package application

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/url"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

// defaultAvatarExt is used when the local asset carries no extension.
const defaultAvatarExt = "jpg"

// jpegQuality matches the picker's 0.8 compression setting.
const jpegQuality = 80

// maxAvatarPixels bounds the decoded size of an acquired image.
var maxAvatarPixels = 40_000_000

var errImageTooLarge = errors.New("image dimensions exceed limit")

// AvatarPath is the fixed storage location of a user's avatar.
func AvatarPath(userID, ext string) string {
	return userID + "/avatar." + ext
}

// AvatarContentType derives the upload content type from the extension as-is,
// so "jpg" becomes "image/jpg".
func AvatarContentType(ext string) string {
	return "image/" + ext
}

// AvatarExt returns the lowercased extension of the last path segment of uri.
func AvatarExt(uri string) string {
	base := lastSegment(uri)
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return defaultAvatarExt
	}
	return strings.ToLower(base[i+1:])
}

func lastSegment(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	return path.Base(strings.ReplaceAll(p, "\\", "/"))
}

// avatarExtFor prefers the extension carried by uri and falls back to the
// decoded format when there is none.
func avatarExtFor(uri, format string) string {
	if hasExt(uri) || format == "" {
		return AvatarExt(uri)
	}
	if format == "jpeg" {
		return defaultAvatarExt
	}
	return format
}

func hasExt(uri string) bool {
	base := lastSegment(uri)
	i := strings.LastIndex(base, ".")
	return i >= 0 && i < len(base)-1
}

// squareCrop center-crops the image to a 1:1 aspect and re-encodes it in its
// original format, which it also returns. Already-square images are returned
// untouched. Images above maxAvatarPixels are rejected before decoding.
func squareCrop(data []byte) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("empty image")
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxAvatarPixels) {
		return nil, "", fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return data, format, nil
	}

	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return nil, "", fmt.Errorf("unsupported image format %q", format)
	}
	side := min(w, h)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.CropCenter(img, side, side), f, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), format, nil
}
