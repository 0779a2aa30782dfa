package canvasrenderer

import "github.com/ByLCY/runflat/layout"

type rect struct {
	X, Y, Width, Height float64
}

// diagram holds the page geometry in millimeters.
type diagram struct {
	width, height float64
	minOffset     int
	rows          int // source rows
	opts          Options
}

func newDiagram(result *layout.Result, opts Options) diagram {
	minOff, maxOff := result.MinOffset(), result.MaxOffset()
	if minOff > 0 {
		minOff = 0 // 横轴从 0 开始
	}
	span := maxOff - minOff
	if span < 1 {
		span = 1
	}
	rows := len(result.Source)
	return diagram{
		width:     2*opts.Margin + float64(span)*opts.CellWidth,
		height:    2*opts.Margin + float64(rows+1)*(opts.RowHeight+opts.RowGap) + opts.RowGap,
		minOffset: minOff,
		rows:      rows,
		opts:      opts,
	}
}

// x maps an offset to its horizontal position.
func (d diagram) x(offset int) float64 {
	return d.opts.Margin + float64(offset-d.minOffset)*d.opts.CellWidth
}

func (d diagram) sourceRow(i int) float64 {
	return d.opts.Margin + float64(i)*(d.opts.RowHeight+d.opts.RowGap)
}

// flatRow sits one extra gap below the last source row, leaving room for the separator.
func (d diagram) flatRow() float64 {
	return d.sourceRow(d.rows) + d.opts.RowGap
}
