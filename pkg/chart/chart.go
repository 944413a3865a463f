// Package chart draws the severity distribution bar chart embedded in the
// full report.
//
// The chart is a fixed-size PNG with one bar per severity bucket in
// Critical, High, Medium, Low order. Rendering is pure and deterministic:
// identical counts always produce byte-identical output.
package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/reportforge/reportforge/pkg/bufpool"
	"github.com/reportforge/reportforge/pkg/finding"
	"github.com/reportforge/reportforge/pkg/rendercontext"
)

// Canvas dimensions in pixels.
const (
	Width  = 600
	Height = 400
)

// Plot area insets.
const (
	marginLeft   = 56
	marginRight  = 24
	marginTop    = 24
	marginBottom = 44

	maxTicks = 5
	barRatio = 0.6
)

var (
	background = color.RGBA{255, 255, 255, 255}
	axisColor  = color.RGBA{55, 65, 81, 255}
	gridColor  = color.RGBA{229, 231, 235, 255}
	textColor  = color.RGBA{31, 41, 55, 255}
)

// Colors maps each severity to its bar color.
var Colors = map[finding.Severity]color.RGBA{
	finding.Critical: {220, 38, 38, 255},
	finding.High:     {234, 88, 12, 255},
	finding.Medium:   {245, 158, 11, 255},
	finding.Low:      {37, 99, 235, 255},
}

// Bar is the geometry of one bar in canvas coordinates (origin top-left).
type Bar struct {
	Severity finding.Severity
	Label    string
	Count    int
	Color    color.RGBA
	X        float64
	Y        float64
	Width    float64
	Height   float64
}

// Geometry describes the whole chart before rasterization.
type Geometry struct {
	Bars    []Bar
	AxisMax int
	Step    int
	Ticks   []int

	PlotLeft   float64
	PlotRight  float64
	PlotTop    float64
	PlotBottom float64
}

// ValueY converts an axis value to a canvas y coordinate.
func (g Geometry) ValueY(v float64) float64 {
	return g.PlotBottom - v/float64(g.AxisMax)*(g.PlotBottom-g.PlotTop)
}

// Layout computes bar geometry for counts. Bar heights are exactly
// proportional to the counts; the y axis starts at zero with integer ticks.
func Layout(counts rendercontext.SeverityCounts) Geometry {
	values := counts.Ordered()

	maxCount := 0
	for _, v := range values {
		if v > maxCount {
			maxCount = v
		}
	}

	step := int(math.Ceil(float64(maxCount) / maxTicks))
	if step < 1 {
		step = 1
	}
	axisMax := step * int(math.Ceil(float64(maxCount)/float64(step)))
	if axisMax < 1 {
		axisMax = 1
	}

	g := Geometry{
		AxisMax:    axisMax,
		Step:       step,
		PlotLeft:   marginLeft,
		PlotRight:  Width - marginRight,
		PlotTop:    marginTop,
		PlotBottom: Height - marginBottom,
	}
	for t := 0; t <= axisMax; t += step {
		g.Ticks = append(g.Ticks, t)
	}

	slot := (g.PlotRight - g.PlotLeft) / float64(len(values))
	barWidth := slot * barRatio
	plotHeight := g.PlotBottom - g.PlotTop

	for i, sev := range finding.Ordered {
		h := float64(values[i]) / float64(axisMax) * plotHeight
		g.Bars = append(g.Bars, Bar{
			Severity: sev,
			Label:    sev.Label(),
			Count:    values[i],
			Color:    Colors[sev],
			X:        g.PlotLeft + slot*float64(i) + (slot-barWidth)/2,
			Y:        g.PlotBottom - h,
			Width:    barWidth,
			Height:   h,
		})
	}
	return g
}

// Image is an encoded chart.
type Image struct {
	PNG []byte
}

// DataURI returns the PNG as a base64 data URI suitable for an img src.
func (i Image) DataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(i.PNG)
}

// Render rasterizes the chart for counts.
func Render(counts rendercontext.SeverityCounts) (Image, error) {
	g := Layout(counts)

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	left, right := px(g.PlotLeft), px(g.PlotRight)
	top, bottom := px(g.PlotTop), px(g.PlotBottom)

	for _, t := range g.Ticks {
		y := px(g.ValueY(float64(t)))
		if t > 0 {
			fill(img, image.Rect(left, y, right, y+1), gridColor)
		}
		label := strconv.Itoa(t)
		drawText(img, label, left-8-textWidth(label), y+4, textColor)
	}

	for _, b := range g.Bars {
		if b.Count > 0 {
			fill(img, image.Rect(px(b.X), px(b.Y), px(b.X+b.Width), bottom), b.Color)
		}
		center := px(b.X + b.Width/2)
		drawText(img, b.Label, center-textWidth(b.Label)/2, bottom+22, textColor)
	}

	fill(img, image.Rect(left-1, top, left+1, bottom+1), axisColor)
	fill(img, image.Rect(left-1, bottom-1, right, bottom+1), axisColor)

	buf := bufpool.Get()
	defer bufpool.Put(buf)
	if err := png.Encode(buf, img); err != nil {
		return Image{}, fmt.Errorf("encode chart: %w", err)
	}
	return Image{PNG: bytes.Clone(buf.Bytes())}, nil
}

func px(v float64) int {
	return int(math.Round(v))
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func textWidth(s string) int {
	d := font.Drawer{Face: basicfont.Face7x13}
	return d.MeasureString(s).Round()
}

func drawText(img *image.RGBA, s string, x, y int, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
