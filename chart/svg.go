package chart

import (
	"fmt"
	"html"
	"io"
	"strings"
)

const (
	marginTop    = 40
	marginRight  = 20
	marginBottom = 40
	marginLeft   = 48
	tickCount    = 5
)

// SVG writes the chart as a standalone <svg> element. Every bar carries a
// <title> child so browsers show the tooltip on hover.
func (c Chart) SVG(w io.Writer) error {
	plotW := float64(c.Width - marginLeft - marginRight)
	plotH := float64(c.Height - marginTop - marginBottom)
	baseline := float64(marginTop) + plotH

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" class="chart" width="%d" height="%d" viewBox="0 0 %d %d" role="img" aria-label="%s">`+"\n",
		c.Width, c.Height, c.Width, c.Height, html.EscapeString(c.Title))
	fmt.Fprintf(&b, `<text class="chart-title" x="%d" y="%d" text-anchor="middle">%s</text>`+"\n",
		c.Width/2, marginTop/2, html.EscapeString(c.Title))

	for i := 0; i <= tickCount; i++ {
		v := c.YMin + (c.YMax-c.YMin)*float64(i)/tickCount
		y := baseline - plotH*float64(i)/tickCount
		fmt.Fprintf(&b, `<line class="grid" x1="%d" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n",
			marginLeft, y, float64(marginLeft)+plotW, y)
		fmt.Fprintf(&b, `<text class="tick" x="%d" y="%.1f" text-anchor="end">%.1f</text>`+"\n",
			marginLeft-6, y+4, v)
	}

	slot := plotW / float64(max(len(c.Bars), 1))
	barW := slot * 0.6
	for i, bar := range c.Bars {
		h := plotH * c.fraction(bar.Probability)
		x := float64(marginLeft) + slot*float64(i) + (slot-barW)/2
		fmt.Fprintf(&b, `<rect class="bar" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" data-outcome="%s" data-probability="%.2f"><title>%s</title></rect>`+"\n",
			x, baseline-h, barW, h, html.EscapeString(c.Color),
			html.EscapeString(bar.Outcome), bar.Probability, html.EscapeString(bar.Tooltip()))
		fmt.Fprintf(&b, `<text class="outcome" x="%.1f" y="%.1f" text-anchor="middle">%s</text>`+"\n",
			x+barW/2, baseline+18, html.EscapeString(bar.Outcome))
	}

	fmt.Fprintf(&b, `<line class="axis" x1="%d" y1="%d" x2="%d" y2="%.1f"/>`+"\n",
		marginLeft, marginTop, marginLeft, baseline)
	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}
