// Package avatar decides whether a profile picture is a real user-chosen
// image or a generic default placeholder. Default avatars are near-uniform in
// color, so the check downsamples the image and looks at how dominant the
// most common color is.
package avatar

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

const (
	// Grid the image is resized to before counting colors. Box filtering
	// averages each cell, so a photo keeps distinct cell colors while a
	// flat placeholder collapses to one.
	gridWidth  = 12
	gridHeight = 12

	// Share of grid pixels the dominant color must exceed for the image to
	// count as a placeholder.
	dominantShare = 0.5

	// maxDownloadBytes caps avatar downloads
	maxDownloadBytes = 8 << 20
)

type rgb struct {
	r, g, b uint8
}

// IsPlaceholder reports whether img looks like a flat default avatar. The
// image is resized to a fixed small grid with a box (area-averaging) filter,
// the alpha channel is discarded, and exact (R,G,B) triples are counted. The
// image is a placeholder when the most frequent triple covers more than half
// of the grid.
func IsPlaceholder(img image.Image) bool {
	small := imaging.Resize(img, gridWidth, gridHeight, imaging.Box)

	counts := make(map[rgb]int, gridWidth*gridHeight)
	for y := 0; y < gridHeight; y++ {
		for x := 0; x < gridWidth; x++ {
			c := small.NRGBAAt(x, y)
			counts[rgb{c.R, c.G, c.B}]++
		}
	}

	dominant := 0
	for _, count := range counts {
		if count > dominant {
			dominant = count
		}
	}

	return float64(dominant)/float64(gridWidth*gridHeight) > dominantShare
}

// Fetch downloads and decodes an avatar image. The raw bytes are returned
// alongside the decoded image so callers can upload the original file
// without a re-encode.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build avatar request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected avatar status: %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read avatar: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode avatar: %w", err)
	}

	return raw, img, nil
}
