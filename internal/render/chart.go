// Package render draws a deterministic angle-timeline PNG for a completed
// analysis, used as a diagnostic artifact alongside the stored report.
package render

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"armsight/internal/config"
	"armsight/internal/geometry"
)

const (
	width   = 640
	height  = 240
	margin  = 24
	maxDeg  = 180.0
	bgGray  = 0xff
)

var (
	elbowColor    = color.RGBA{0xc0, 0x30, 0x30, 0xff}
	wristColor    = color.RGBA{0x30, 0x50, 0xc0, 0xff}
	shoulderColor = color.RGBA{0x30, 0x90, 0x40, 0xff}
	ruleColor     = color.RGBA{0x90, 0x90, 0x90, 0xff}
)

// Timeline writes the three joint series with the elbow severity rules.
func Timeline(series geometry.ArmSeries, t config.RiskTuning, path string) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = bgGray
	}

	start, end := timeBounds(series)
	plot(img, series.Elbow, start, end, elbowColor)
	plot(img, series.Wrist, start, end, wristColor)
	plot(img, series.Shoulder, start, end, shoulderColor)

	rule(img, t.ElbowHighDeg)
	rule(img, t.ElbowMediumDeg)

	label(img, "elbow", margin, 14, elbowColor)
	label(img, "wrist", margin+60, 14, wristColor)
	label(img, "shoulder", margin+120, 14, shoulderColor)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func timeBounds(series geometry.ArmSeries) (float64, float64) {
	start, end := 0.0, 1.0
	first := true
	for _, s := range [][]geometry.AngleSample{series.Elbow, series.Wrist, series.Shoulder} {
		if len(s) == 0 {
			continue
		}
		if first || s[0].Timestamp < start {
			start = s[0].Timestamp
		}
		if first || s[len(s)-1].Timestamp > end {
			end = s[len(s)-1].Timestamp
		}
		first = false
	}
	if end <= start {
		end = start + 1
	}
	return start, end
}

func plot(img *image.RGBA, samples []geometry.AngleSample, start, end float64, c color.RGBA) {
	var prevX, prevY int
	for i, s := range samples {
		x := margin + int(float64(width-2*margin)*(s.Timestamp-start)/(end-start))
		y := height - margin - int(float64(height-2*margin)*s.Degrees/maxDeg)
		if i > 0 {
			line(img, prevX, prevY, x, y, c)
		}
		prevX, prevY = x, y
	}
}

func rule(img *image.RGBA, deg float64) {
	y := height - margin - int(float64(height-2*margin)*deg/maxDeg)
	for x := margin; x < width-margin; x += 4 {
		img.SetRGBA(x, y, ruleColor)
		img.SetRGBA(x+1, y, ruleColor)
	}
}

// line draws with integer Bresenham stepping.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func label(img *image.RGBA, text string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
