// Package chart draws the two-bar probability chart shown with every
// prediction, as SVG for the web form and as coloured bars for a terminal.
package chart

import (
	"fmt"
	"math"

	"heartpredict/predictor"
)

const (
	Title  = "Prediction Probabilities"
	Color  = "#d7263d"
	Width  = 400
	Height = 300
)

type Bar struct {
	Outcome     string  `json:"outcome"`
	Probability float64 `json:"probability"`
}

// Chart is a vertical bar chart over a fixed y-axis domain.
type Chart struct {
	Title  string  `json:"title"`
	Bars   []Bar   `json:"bars"`
	YMin   float64 `json:"y_min"`
	YMax   float64 `json:"y_max"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Color  string  `json:"color"`
}

// New builds the chart for a class distribution. The y-axis is always [0,1]
// so bars are comparable across predictions.
func New(noDisease, disease float64) Chart {
	return Chart{
		Title: Title,
		Bars: []Bar{
			{Outcome: predictor.NoDisease.String(), Probability: noDisease},
			{Outcome: predictor.Disease.String(), Probability: disease},
		},
		YMin:   0,
		YMax:   1,
		Width:  Width,
		Height: Height,
		Color:  Color,
	}
}

func FromResult(r predictor.Result) Chart {
	return New(r.Probabilities.NoDisease, r.Probabilities.Disease)
}

// Tooltip is the hover text of a bar, probability at two decimals.
func (b Bar) Tooltip() string {
	return fmt.Sprintf("%s: %.2f", b.Outcome, b.Probability)
}

// fraction maps p onto the axis, clamped to [0,1].
func (c Chart) fraction(p float64) float64 {
	span := c.YMax - c.YMin
	if span <= 0 || math.IsNaN(p) {
		return 0
	}
	return math.Min(1, math.Max(0, (p-c.YMin)/span))
}
