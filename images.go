package lantern

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// loadExternalImage fetches and decodes an image from a http(s) URL or a
// local file path. It is the only genuinely asynchronous operation on the
// render path; ctx cancels an in-flight fetch (a torn-down mount must not
// keep loading).
func loadExternalImage(ctx context.Context, uri string) (*ebiten.Image, error) {
	data, err := fetchImageBytes(ctx, uri)
	if err != nil {
		return nil, &ImageLoadError{URI: uri, Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageLoadError{URI: uri, Err: err}
	}
	return ebiten.NewImageFromImage(img), nil
}

func fetchImageBytes(ctx context.Context, uri string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %s", resp.Status)
		}
		buf := &bytes.Buffer{}
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(strings.TrimPrefix(uri, "file://"))
	}
}

// imageLoader is the compositor's pluggable load function. Tests swap it
// for a stub so batches resolve without network or files.
type imageLoader func(ctx context.Context, uri string) (*ebiten.Image, error)

// loadBatch loads images for a set of URIs concurrently. Loads are
// independent: one failed image is logged and omitted without blocking its
// siblings. The result maps uri to image for every load that succeeded
// before ctx was canceled.
func loadBatch(ctx context.Context, load imageLoader, uris []string) map[string]*ebiten.Image {
	type loaded struct {
		uri string
		img *ebiten.Image
	}

	seen := make(map[string]bool, len(uris))
	results := make(chan loaded, len(uris))
	var wg sync.WaitGroup

	for _, uri := range uris {
		if uri == "" || seen[uri] {
			continue
		}
		seen[uri] = true
		wg.Add(1)
		go func(uri string) {
			defer wg.Done()
			img, err := load(ctx, uri)
			if err != nil {
				if ctx.Err() == nil {
					warnf("%v", err)
				}
				return
			}
			results <- loaded{uri: uri, img: img}
		}(uri)
	}

	wg.Wait()
	close(results)

	images := make(map[string]*ebiten.Image, len(seen))
	for l := range results {
		images[l.uri] = l.img
	}
	return images
}
