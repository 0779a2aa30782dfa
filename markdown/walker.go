package markdown

import (
	"bytes"
	"strconv"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/ByLCY/runflat/runs"
)

// walker 遍历 goldmark AST，输出纯文本与 run。
// 每个 span 在进入时追加一个 run 并压栈，离开时回填 End，因此 run 的顺序就是开始顺序。
type walker struct {
	source []byte
	buf    textBuffer
	runs   []runs.Run
	open   []int        // indexes into runs of still-open spans
	empty  map[int]bool // spans that closed without producing text
	lists  []*listState

	math       bool
	mathCursor int // source offset just past the last inline formula
}

type listState struct {
	ordered bool
	next    int
}

func newWalker(source []byte, o *options) *walker {
	return &walker{
		source: source,
		buf:    textBuffer{utf16: o.utf16},
		empty:  map[int]bool{},
		math:   o.math,
	}
}

func (w *walker) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := node.(type) {
	// --- Inline ---
	case *ast.Text:
		if entering {
			w.buf.Write(string(n.Segment.Value(w.source)))
			if n.SoftLineBreak() || n.HardLineBreak() {
				w.buf.Write("\n")
			}
		}

	case *ast.String:
		if entering {
			w.buf.Write(string(n.Value))
		}

	case *ast.Emphasis:
		key := "italic"
		if n.Level == 2 {
			key = "bold"
		}
		w.span(entering, runs.Attributes{key: true})

	case *east.Strikethrough:
		w.span(entering, runs.Attributes{"strikethrough": true})

	case *ast.CodeSpan:
		if entering {
			w.push(runs.Attributes{"code": true})
			w.buf.Write(w.childText(n))
			w.pop()
			return ast.WalkSkipChildren, nil
		}

	case *ast.Link:
		attrs := runs.Attributes{"link": string(n.Destination)}
		if len(n.Title) > 0 {
			attrs["title"] = string(n.Title)
		}
		w.span(entering, attrs)

	case *ast.AutoLink:
		if entering {
			w.push(runs.Attributes{"link": string(n.URL(w.source))})
			w.buf.Write(string(n.Label(w.source)))
			w.pop()
			return ast.WalkSkipChildren, nil
		}

	case *ast.Image:
		if entering {
			at := w.buf.Offset()
			w.runs = append(w.runs, runs.Run{Start: at, End: at, Attributes: runs.Attributes{
				"attachment": string(n.Destination),
				"alt":        w.childText(n),
			}})
			return ast.WalkSkipChildren, nil
		}

	// --- Blocks ---
	case *ast.Paragraph, *ast.TextBlock:
		if entering && !w.firstInListItem(node) {
			if len(w.lists) > 0 {
				w.buf.EnsureBreak(1)
			} else {
				w.buf.EnsureBreak(2)
			}
		}
		if entering && w.math {
			if tex, ok := displayMath(w.blockSource(node)); ok {
				w.mathRun(tex)
				return ast.WalkSkipChildren, nil
			}
		}

	case *ast.Heading:
		if entering {
			w.buf.EnsureBreak(2)
		}
		w.span(entering, runs.Attributes{"heading": n.Level, "bold": true})

	case *ast.Blockquote:
		if entering {
			w.buf.EnsureBreak(2)
		}
		w.span(entering, runs.Attributes{"quote": true})

	case *ast.List:
		if entering {
			w.buf.EnsureBreak(1)
			w.lists = append(w.lists, &listState{ordered: n.IsOrdered(), next: n.Start})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
		}

	case *ast.ListItem:
		if entering {
			w.buf.EnsureBreak(1)
			w.buf.Write(w.bullet())
		}

	case *ast.FencedCodeBlock:
		if entering {
			attrs := runs.Attributes{"code": true, "block": true}
			if lang := n.Language(w.source); len(lang) > 0 {
				attrs["language"] = string(lang)
			}
			w.codeBlock(n, attrs)
			return ast.WalkSkipChildren, nil
		}

	case *ast.CodeBlock:
		if entering {
			w.codeBlock(n, runs.Attributes{"code": true, "block": true})
			return ast.WalkSkipChildren, nil
		}

	case *ast.ThematicBreak:
		if entering {
			w.buf.EnsureBreak(2)
		}

	case *ast.RawHTML, *ast.HTMLBlock:
		return ast.WalkSkipChildren, nil

	default:
		if !entering {
			break
		}
		switch node.Kind() {
		case treeblood.KindMathInline:
			w.mathRun(w.inlineTeX(node))
			return ast.WalkSkipChildren, nil
		case treeblood.KindMathBlock:
			w.buf.EnsureBreak(2)
			tex := trimDelimiters(w.blockSource(node))
			if tex == "" {
				tex = trimDelimiters(w.childText(node))
			}
			w.mathRun(tex)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *walker) span(entering bool, attrs runs.Attributes) {
	if entering {
		w.push(attrs)
	} else {
		w.pop()
	}
}

func (w *walker) push(attrs runs.Attributes) {
	at := w.buf.Offset()
	w.runs = append(w.runs, runs.Run{Start: at, End: at, Attributes: attrs})
	w.open = append(w.open, len(w.runs)-1)
}

func (w *walker) pop() {
	if len(w.open) == 0 {
		return
	}
	idx := w.open[len(w.open)-1]
	w.open = w.open[:len(w.open)-1]
	w.runs[idx].End = w.buf.Offset()
	if w.runs[idx].IsEmpty() {
		w.empty[idx] = true
	}
}

func (w *walker) codeBlock(n ast.Node, attrs runs.Attributes) {
	w.buf.EnsureBreak(2)
	w.push(attrs)
	w.buf.Write(strings.TrimRight(w.blockSource(n), "\n"))
	w.pop()
}

func (w *walker) mathRun(tex string) {
	if tex == "" {
		return
	}
	w.push(runs.Attributes{"math": tex})
	w.buf.Write(tex)
	w.pop()
}

// blockSource joins the raw source lines of a block node.
func (w *walker) blockSource(n ast.Node) string {
	lines := n.Lines()
	if lines == nil {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(w.source))
	}
	return sb.String()
}

// trimDelimiters strips surrounding `$` delimiters and blank space.
func trimDelimiters(src string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(src), "$"))
}

// displayMath reports whether src is a single `$$ ... $$` formula and returns its TeX.
func displayMath(src string) (string, bool) {
	s := strings.TrimSpace(src)
	if len(s) < 4 || !strings.HasPrefix(s, "$$") || !strings.HasSuffix(s, "$$") {
		return "", false
	}
	tex := strings.TrimSpace(s[2 : len(s)-2])
	if tex == "" || strings.Contains(tex, "$$") {
		return "", false
	}
	return tex, true
}

// inlineTeX 从源码中取回行内公式：math 节点不暴露 TeX，
// 因此从前一个文本节点的结尾向后找 `$` / `$$` 定界符。
func (w *walker) inlineTeX(n ast.Node) string {
	from := max(w.scanStart(n), w.mathCursor)
	if from >= len(w.source) {
		return ""
	}
	open := bytes.IndexByte(w.source[from:], '$')
	if open < 0 {
		return ""
	}
	open += from
	delim := []byte("$")
	if bytes.HasPrefix(w.source[open:], []byte("$$")) {
		delim = []byte("$$")
	}
	body := open + len(delim)
	end := bytes.Index(w.source[body:], delim)
	if end < 0 {
		return ""
	}
	end += body
	w.mathCursor = end + len(delim)
	return strings.TrimSpace(string(w.source[body:end]))
}

// scanStart returns a source offset at or before the opening delimiter of n:
// the end of the closest preceding text, or the start of the enclosing block.
func (w *walker) scanStart(n ast.Node) int {
	for node := n; node != nil; node = node.Parent() {
		for prev := node.PreviousSibling(); prev != nil; prev = prev.PreviousSibling() {
			if stop, ok := lastTextStop(prev); ok {
				return stop
			}
		}
		parent := node.Parent()
		if parent != nil && parent.Type() == ast.TypeBlock {
			if lines := parent.Lines(); lines != nil && lines.Len() > 0 {
				return lines.At(0).Start
			}
			return 0
		}
	}
	return 0
}

func lastTextStop(n ast.Node) (int, bool) {
	if t, ok := n.(*ast.Text); ok {
		return t.Segment.Stop, true
	}
	for c := n.LastChild(); c != nil; c = c.PreviousSibling() {
		if stop, ok := lastTextStop(c); ok {
			return stop, true
		}
	}
	return 0, false
}

// childText concatenates the literal text below n (code spans, image alt text).
func (w *walker) childText(n ast.Node) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(w.source))
		case *ast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(w.childText(c))
		}
	}
	return sb.String()
}

func (w *walker) firstInListItem(node ast.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	_, ok := parent.(*ast.ListItem)
	return ok && parent.FirstChild() == node
}

func (w *walker) bullet() string {
	if len(w.lists) == 0 {
		return ""
	}
	l := w.lists[len(w.lists)-1]
	if !l.ordered {
		return "• "
	}
	b := strconv.Itoa(l.next) + ". "
	l.next++
	return b
}

func (w *walker) result() *Document {
	out := make([]runs.Run, 0, len(w.runs))
	for i, r := range w.runs {
		if w.empty[i] {
			continue
		}
		out = append(out, r)
	}
	return &Document{Text: w.buf.String(), Runs: out}
}
