package lantern

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// SaveSnapshot writes the current contents of view to a timestamped PNG in
// dir, creating the directory if needed. The game master uses this to keep
// a record of what the players were shown; the label (usually the window or
// stage name) is stamped into the filename. Returns the written path.
func SaveSnapshot(view *ebiten.Image, dir, label string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
	}

	bounds := view.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, 4*w*h)
	view.ReadPixels(pixels)

	var buf bytes.Buffer
	if err := png.Encode(&buf, unpremultiply(pixels, w, h)); err != nil {
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return path, nil
}

// unpremultiply converts ebiten's premultiplied pixel buffer into a
// straight-alpha NRGBA image for PNG encoding.
func unpremultiply(pixels []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, pixels)
	for i := 3; i < len(img.Pix); i += 4 {
		a := img.Pix[i]
		if a == 0 || a == 0xff {
			continue
		}
		for j := i - 3; j < i; j++ {
			v := int(img.Pix[j]) * 0xff / int(a)
			if v > 0xff {
				v = 0xff
			}
			img.Pix[j] = uint8(v)
		}
	}
	return img
}

// sanitizeLabel maps characters that are unsafe in file names to
// underscores and falls back to "snapshot" for empty labels.
func sanitizeLabel(label string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(label))
	if safe == "" {
		return "snapshot"
	}
	return safe
}
