package avatar_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/marianfoo/bluesky-bots/avatar"

	"github.com/stretchr/testify/assert"
)

func flatImage(width, height int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		name     string
		image    image.Image
		expected bool
	}{
		{
			name:     "flat blue placeholder",
			image:    flatImage(128, 128, color.NRGBA{R: 0, G: 133, B: 255, A: 255}),
			expected: true,
		},
		{
			name:     "flat gray placeholder",
			image:    flatImage(64, 64, color.NRGBA{R: 200, G: 200, B: 200, A: 255}),
			expected: true,
		},
		{
			name: "flat color with varying alpha still a placeholder",
			image: func() image.Image {
				img := image.NewNRGBA(image.Rect(0, 0, 96, 96))
				for y := 0; y < 96; y++ {
					for x := 0; x < 96; x++ {
						img.SetNRGBA(x, y, color.NRGBA{R: 120, G: 120, B: 255, A: uint8(x + y)})
					}
				}
				return img
			}(),
			expected: true,
		},
		{
			name: "vertical gradient photo",
			image: func() image.Image {
				img := image.NewNRGBA(image.Rect(0, 0, 120, 120))
				for y := 0; y < 120; y++ {
					for x := 0; x < 120; x++ {
						img.SetNRGBA(x, y, color.NRGBA{R: uint8(y * 2), G: uint8(255 - y*2), B: uint8(x * 2), A: 255})
					}
				}
				return img
			}(),
			expected: false,
		},
		{
			name: "half and half split",
			image: func() image.Image {
				img := image.NewNRGBA(image.Rect(0, 0, 96, 96))
				for y := 0; y < 96; y++ {
					for x := 0; x < 96; x++ {
						c := color.NRGBA{R: 255, A: 255}
						if x >= 48 {
							c = color.NRGBA{B: 255, A: 255}
						}
						img.SetNRGBA(x, y, c)
					}
				}
				return img
			}(),
			expected: false,
		},
		{
			name: "mostly flat with small logo",
			image: func() image.Image {
				img := image.NewNRGBA(image.Rect(0, 0, 120, 120))
				for y := 0; y < 120; y++ {
					for x := 0; x < 120; x++ {
						img.SetNRGBA(x, y, color.NRGBA{R: 30, G: 30, B: 30, A: 255})
					}
				}
				// A small badge in one corner must not rescue the image
				for y := 0; y < 10; y++ {
					for x := 0; x < 10; x++ {
						img.SetNRGBA(x, y, color.NRGBA{R: 250, G: 250, B: 0, A: 255})
					}
				}
				return img
			}(),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := avatar.IsPlaceholder(tt.image)
			assert.Equal(t, tt.expected, result)
		})
	}
}
