// Package testfixture builds synthetic reference images and a PSNR
// comparison harness for the render pipeline's test suite: the SMPTE-bar
// source and image-quality gate spec.md's testable properties describe
// measuring rendered output against.
package testfixture

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
)

// barColors is the classic 75%-intensity SMPTE color-bar sequence, left to
// right.
var barColors = []color.RGBA{
	{191, 191, 191, 255}, // gray
	{191, 191, 0, 255},   // yellow
	{0, 191, 191, 255},   // cyan
	{0, 191, 0, 255},     // green
	{191, 0, 191, 255},   // magenta
	{191, 0, 0, 255},     // red
	{0, 0, 191, 255},     // blue
}

// SMPTEBars renders the 7-bar reference pattern at width x height, the
// source spec.md's literal end-to-end scenarios render clips from.
func SMPTEBars(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	barWidth := width / len(barColors)
	if barWidth == 0 {
		barWidth = 1
	}
	for x := 0; x < width; x++ {
		idx := x / barWidth
		if idx >= len(barColors) {
			idx = len(barColors) - 1
		}
		c := barColors[idx]
		for y := 0; y < height; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// ScaleRGBA resamples src to width x height with a Catmull-Rom kernel,
// mirroring the Scaler stage's bicubic choice for downscaling, so reference
// fixtures at non-native resolutions don't need a second hand-authored
// generator.
func ScaleRGBA(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// ToFrame converts an RGBA reference image into a standalone YUV420P frame
// via BT.601 limited-range conversion, the pipeline's canonical working
// format for 8-bit sources.
func ToFrame(img *image.RGBA) *frame.Frame {
	b := img.Bounds()
	f := frame.NewStandalone(b.Dx(), b.Dy(), frame.FormatYUV420P)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			yv, u, v := rgbToYUV(c.R, c.G, c.B)
			f.Data[0][y*f.Strides[0]+x] = yv
			if x%2 == 0 && y%2 == 0 {
				cx, cy := x/2, y/2
				f.Data[1][cy*f.Strides[1]+cx] = u
				f.Data[2][cy*f.Strides[2]+cx] = v
			}
		}
	}
	return f
}

// rgbToYUV converts one full-range RGB sample to limited-range YUV (Y in
// [16,235], chroma in [16,240]), clamped only to the byte range [0,255] here
// since the generator never produces extreme values.
func rgbToYUV(r, g, b byte) (y, u, v byte) {
	fr, fg, fb := float64(r), float64(g), float64(b)
	yy := 16 + (0.257*fr + 0.504*fg + 0.098*fb)
	uu := 128 + (-0.148*fr - 0.291*fg + 0.439*fb)
	vv := 128 + (0.439*fr - 0.368*fg - 0.071*fb)
	return clampByte(yy), clampByte(uu), clampByte(vv)
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
