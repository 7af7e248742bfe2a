package viz

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/stochsim/internal/results"
)

// SVGObservable renders an observable's time course as an SVG: every
// trajectory as a faint line with the ensemble mean drawn on top.
func SVGObservable(r *results.SimulationResult, name string, width, height int) (string, error) {
	obs, err := r.Observable(name)
	if err != nil {
		return "", err
	}
	mean, err := r.MeanObservable(name)
	if err != nil {
		return "", err
	}
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 360
	}

	minY, maxY := mean[0], mean[0]
	for _, row := range obs {
		for _, v := range row {
			if v < minY {
				minY = v
			}
			if v > maxY {
				maxY = v
			}
		}
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.05
	maxY += rangeY * 0.05
	rangeY = maxY - minY

	minX := r.Tout[0]
	rangeX := r.Tout[len(r.Tout)-1] - minX
	if rangeX == 0 {
		rangeX = 1
	}

	path := func(row []float64) string {
		var sb strings.Builder
		for k, v := range row {
			x := (r.Tout[k] - minX) / rangeX * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if k == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		return sb.String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
	for _, row := range obs {
		fmt.Fprintf(&sb, `<path fill="none" stroke="#00ff88" stroke-opacity="0.15" stroke-width="1" d="%s"/>
`, path(row))
	}
	fmt.Fprintf(&sb, `<path fill="none" stroke="#00ff88" stroke-width="2" d="%s"/>
<text x="8" y="16" fill="#cccccc" font-family="monospace" font-size="12">%s (%d trajectories)</text>
</svg>`, path(mean), name, len(obs))
	return sb.String(), nil
}

// WriteSVG renders an observable and writes the SVG document to path.
func WriteSVG(path string, r *results.SimulationResult, name string, width, height int) error {
	doc, err := SVGObservable(r, name, width, height)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(doc), 0644)
}
