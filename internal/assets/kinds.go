package assets

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

// Kind describes one accepted category of asset: the MIME types it
// allows (mapped to the stored file extension) and an optional
// post-processing step applied before the bytes hit disk. The caller's
// claimed type is never trusted; only the sniffed type is matched.
type Kind struct {
	Label       string
	allowed     map[string]string
	postProcess func(ctx context.Context, detected *mimetype.MIME, data []byte) []byte
}

// PDF accepts application/pdf only, stored verbatim.
func PDF() Kind {
	return Kind{
		Label:   "pdf",
		allowed: map[string]string{"application/pdf": "pdf"},
	}
}

// Image accepts raster formats plus SVG. SVG is minified in-process;
// raster images have their metadata stripped by exiftool. A missing or
// failing exiftool degrades to storing the original bytes.
func Image() Kind {
	return Kind{
		Label: "image",
		allowed: map[string]string{
			"image/jpeg":    "jpg",
			"image/png":     "png",
			"image/webp":    "webp",
			"image/svg+xml": "svg",
		},
		postProcess: processImage,
	}
}

func (k Kind) extensionFor(detected *mimetype.MIME) (string, bool) {
	for mime, ext := range k.allowed {
		if detected.Is(mime) {
			return ext, true
		}
	}
	return "", false
}

var svgMinifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("image/svg+xml", svg.Minify)
	return m
}()

func processImage(ctx context.Context, detected *mimetype.MIME, data []byte) []byte {
	if detected.Is("image/svg+xml") {
		minified, err := svgMinifier.Bytes("image/svg+xml", data)
		if err != nil {
			log.Warn().Err(err).Msg("svg minification failed, storing original")
			return data
		}
		return minified
	}
	stripped, err := stripMetadata(ctx, data)
	if err != nil {
		log.Warn().Err(err).Msg("exiftool metadata strip failed, storing original")
		return data
	}
	return stripped
}

// stripMetadata pipes the image through exiftool, dropping EXIF and
// similar embedded metadata.
func stripMetadata(ctx context.Context, data []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "exiftool", "-all=", "-")
	cmd.Stdin = bytes.NewReader(data)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
