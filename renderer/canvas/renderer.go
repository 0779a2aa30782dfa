package canvasrenderer

import (
	"bytes"
	"hash/fnv"
	"image/color"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/runflat/layout"
	"github.com/ByLCY/runflat/renderer"
	"github.com/ByLCY/runflat/runs"
)

// Defaults, all in millimeters.
const (
	defaultCellWidth = 6.0
	defaultRowHeight = 5.0
	defaultRowGap    = 1.5
	defaultMargin    = 10.0
	markStrokeWidth  = 0.6
	outlineWidth     = 0.2
)

// Renderer draws a diagram of a layout result: one row per source run and a
// final row with the flattened partition.
type Renderer struct {
	opts Options

	fontMu sync.Mutex
	family *canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the diagram. Zero values fall back to defaults.
type Options struct {
	CellWidth float64 // width of one offset unit
	RowHeight float64
	RowGap    float64
	Margin    float64
	// Outline strokes a border around every bar, like the outline toggles of a text renderer.
	Outline bool
	// Labels draws each run's attributes inside its bar. Needs Font.
	Labels bool
	Font   Resource
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

func (r Resource) empty() bool { return len(r.Bytes) == 0 && r.Path == "" }

// NewRenderer creates a diagram renderer.
func NewRenderer(opts Options) *Renderer {
	if opts.CellWidth <= 0 {
		opts.CellWidth = defaultCellWidth
	}
	if opts.RowHeight <= 0 {
		opts.RowHeight = defaultRowHeight
	}
	if opts.RowGap < 0 {
		opts.RowGap = 0
	} else if opts.RowGap == 0 {
		opts.RowGap = defaultRowGap
	}
	if opts.Margin <= 0 {
		opts.Margin = defaultMargin
	}
	return &Renderer{opts: opts}
}

// Render renders the result into a single-page PDF.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, errors.New("渲染结果为空")
	}
	if len(result.Source) == 0 {
		return nil, errors.New("缺少可渲染的 run")
	}

	var family *canvas.FontFamily
	if r.opts.Labels && !r.opts.Font.empty() {
		var err error
		if family, err = r.labelFamily(); err != nil {
			return nil, err
		}
	}

	d := newDiagram(result, r.opts)
	var buf bytes.Buffer
	writer := pdf.New(&buf, d.width, d.height, nil)
	applyMeta(writer, result.Meta)

	c := canvas.New(d.width, d.height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 左上角为原点，y 向下

	for i, run := range result.Source {
		r.drawRun(ctx, d, run, d.sourceRow(i), family)
	}
	r.drawSeparator(ctx, d)
	for _, run := range result.Runs {
		r.drawRun(ctx, d, run, d.flatRow(), family)
	}

	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "写入 PDF 失败")
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

func (r *Renderer) drawRun(ctx *canvas.Context, d diagram, run runs.Run, row float64, family *canvas.FontFamily) {
	fill := fillFor(run.Attributes)
	if run.IsEmpty() {
		// 零宽 run 画成一条竖线
		x := d.x(run.Start)
		ctx.SetStrokeColor(fill)
		ctx.SetStrokeWidth(markStrokeWidth)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(0, r.opts.RowHeight)
		ctx.DrawPath(x, row, p)
		return
	}

	bar := rect{X: d.x(run.Start), Y: row, Width: float64(run.Len()) * r.opts.CellWidth, Height: r.opts.RowHeight}
	ctx.SetFillColor(fill)
	if r.opts.Outline {
		ctx.SetStrokeColor(canvas.Hex("#333333"))
		ctx.SetStrokeWidth(outlineWidth)
	} else {
		ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	}
	ctx.DrawPath(bar.X, bar.Y, canvas.Rectangle(bar.Width, bar.Height))

	if family != nil && len(run.Attributes) > 0 {
		size := labelSize(run.Attributes, r.opts.RowHeight)
		face := family.Face(size, canvas.Hex("#111111"), canvas.FontRegular, canvas.FontNormal)
		baseline := bar.Y + (bar.Height+face.Metrics().Ascent)/2
		line := canvas.NewTextLine(face, labelFor(run.Attributes), canvas.Left)
		ctx.DrawText(bar.X+0.5, baseline, line)
	}
}

func (r *Renderer) drawSeparator(ctx *canvas.Context, d diagram) {
	y := d.flatRow() - r.opts.RowGap
	ctx.SetStrokeColor(canvas.Hex("#999999"))
	ctx.SetStrokeWidth(outlineWidth)
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(d.width-2*r.opts.Margin, 0)
	ctx.DrawPath(r.opts.Margin, y, p)
}

// labelFamily 懒加载标签字体。
func (r *Renderer) labelFamily() (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if r.family != nil {
		return r.family, nil
	}
	data := r.opts.Font.Bytes
	if len(data) == 0 {
		var err error
		if data, err = os.ReadFile(r.opts.Font.Path); err != nil {
			return nil, errors.Wrapf(err, "读取字体 %s 失败", r.opts.Font.Path)
		}
	}
	family := canvas.NewFontFamily("runflat-labels")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, errors.Wrap(err, "加载字体失败")
	}
	r.family = family
	return family, nil
}

// labelSize 返回标签字号（pt）：优先使用 run 的 size 长度属性，但不超过行高的 60%。
func labelSize(attrs runs.Attributes, rowHeight float64) float64 {
	limit := rowHeight * 0.6
	if l, ok := attrs["size"].(layout.Length); ok {
		switch l.Unit {
		case layout.UnitNone, layout.UnitPercent:
		default:
			if mm := l.ToMM(); mm > 0 && mm < limit {
				return l.ToPT()
			}
		}
	}
	return limit * layout.MmToPt
}

var palette = []string{
	"#8dd3c7", "#ffffb3", "#bebada", "#fb8072", "#80b1d3",
	"#fdb462", "#b3de69", "#fccde5", "#bc80bd", "#ccebc5",
}

// fillFor 优先使用 backgroundColor / color 属性，否则按属性集合哈希取调色板颜色。
func fillFor(attrs runs.Attributes) color.Color {
	for _, key := range []string{"backgroundColor", "color"} {
		if c, ok := attrs[key].(layout.Color); ok {
			return colorFromLayout(c)
		}
	}
	if len(attrs) == 0 {
		return canvas.Hex("#dddddd")
	}
	h := fnv.New32a()
	h.Write([]byte(attrs.String()))
	return canvas.Hex(palette[h.Sum32()%uint32(len(palette))])
}

func labelFor(attrs runs.Attributes) string {
	s := attrs.String()
	return strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}
