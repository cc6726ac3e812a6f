package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"crowdfield.ai/internal/observerproto"
	"crowdfield.ai/internal/sim/biocrowds"
)

const shades = " .:-=+*%"

var (
	styleHUD     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleBlocked = tcell.StyleDefault.Foreground(tcell.ColorGray).Background(tcell.ColorDarkSlateGray)
	styleShade   = tcell.StyleDefault.Foreground(tcell.ColorLightGreen)
)

func agentStyle(id int) tcell.Style {
	c := biocrowds.PaletteColor(id)
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c[0]*255), int32(c[1]*255), int32(c[2]*255)))
}

// fieldRows is the number of screen rows left for the grid after the HUD
// line at the top and the help line at the bottom.
func fieldRows(h int) int { return max(h-2, 0) }

// worldToScreen maps a ground point to a screen cell with +Z up. It uses the
// server's view projection when present and origin/size otherwise.
func worldToScreen(boot observerproto.BootstrapResponse, cols, rows int, pos [2]float64) (int, int, bool) {
	p := boot.Params
	if cols <= 0 || rows <= 0 {
		return 0, 0, false
	}
	var u, v float64
	if m := p.ViewProj; m[0] != 0 && m[9] != 0 {
		u = (m[0]*pos[0] + m[12] + 1) / 2
		v = (m[9]*pos[1] + m[13] + 1) / 2
	} else {
		if p.Size[0] <= 0 || p.Size[1] <= 0 {
			return 0, 0, false
		}
		u = (pos[0] - p.Origin[0]) / p.Size[0]
		v = (pos[1] - p.Origin[1]) / p.Size[1]
	}
	if u < 0 || v < 0 || u > 1 || v > 1 {
		return 0, 0, false
	}
	x := min(int(math.Floor(u*float64(cols))), cols-1)
	y := rows - 1 - min(int(math.Floor(v*float64(rows))), rows-1)
	return x, y + 1, true
}

func cellRune(layer string, v int32) (rune, tcell.Style) {
	if layer == observerproto.LayerOwnership {
		switch {
		case v == biocrowds.Blocked:
			return '#', styleBlocked
		case v < 0:
			return ' ', tcell.StyleDefault
		default:
			return '.', agentStyle(int(v))
		}
	}
	i := int(v) * len(shades) / 256
	i = min(max(i, 0), len(shades)-1)
	return rune(shades[i]), styleShade
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

// render draws f onto s, downsampling the grid to the screen size.
func render(s tcell.Screen, f frame) {
	s.Clear()
	w, h := s.Size()
	rows := fieldRows(h)

	for x := 0; x < w; x++ {
		s.SetContent(x, 0, ' ', nil, styleHUD)
	}
	drawText(s, 0, 0, styleHUD, fmt.Sprintf(" %s  tick=%d active=%d/%d layer=%s",
		f.Boot.RunID, f.Tick.Tick, f.Tick.Active, len(f.Tick.Agents), f.Layer))

	if len(f.Grid) == f.GridW*f.GridD && f.GridW > 0 && f.GridD > 0 && w > 0 && rows > 0 {
		for cy := 0; cy < rows; cy++ {
			gz := f.GridD - 1 - cy*f.GridD/rows
			for cx := 0; cx < w; cx++ {
				gx := cx * f.GridW / w
				r, st := cellRune(f.Layer, f.Grid[gz*f.GridW+gx])
				s.SetContent(cx, cy+1, r, nil, st)
			}
		}
	}

	for _, a := range f.Tick.Agents {
		x, y, ok := worldToScreen(f.Boot, w, rows, a.Pos)
		if !ok {
			continue
		}
		r := '@'
		if a.Finished {
			r = 'o'
		}
		s.SetContent(x, y, r, nil, agentStyle(a.ID).Bold(true))
	}

	footer := "[Tab] layer  [q] quit"
	if f.Status != "" {
		footer += "  " + f.Status
	}
	drawText(s, 0, h-1, tcell.StyleDefault, footer)
}
