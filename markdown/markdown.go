// Package markdown turns Markdown into plain text plus the attributed runs
// that describe its inline formatting. Emphasis, links and other spans become
// possibly nested runs over the text's offset axis; images become zero-width
// attachment runs. The result is meant to be fed to runs.Flatten.
package markdown

import (
	"github.com/cockroachdb/errors"
	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/ByLCY/runflat/runs"
)

// Document is the plain text of a Markdown source and the runs over it.
type Document struct {
	Text string
	Runs []runs.Run
}

type options struct {
	utf16 bool
	gfm   bool
	math  bool
}

// Option configures Parse.
type Option func(*options)

// WithUTF16Offsets measures offsets in UTF-16 code units instead of runes.
func WithUTF16Offsets() Option {
	return func(o *options) {
		o.utf16 = true
	}
}

// WithGFM toggles GitHub-flavoured strikethrough (enabled by default).
func WithGFM(enable bool) Option {
	return func(o *options) {
		o.gfm = enable
	}
}

// WithMath enables TeX math ($...$ and $$...$$). Math spans become runs with
// a `math` attribute holding their source.
func WithMath() Option {
	return func(o *options) {
		o.math = true
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{gfm: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Parse converts Markdown source into a Document.
func Parse(source string, opts ...Option) (*Document, error) {
	o := applyOptions(opts...)

	var exts []goldmark.Extender
	if o.gfm {
		exts = append(exts, extension.Strikethrough)
	}
	if o.math {
		exts = append(exts, treeblood.MathML())
	}
	md := goldmark.New(goldmark.WithExtensions(exts...))

	src := []byte(source)
	root := md.Parser().Parse(text.NewReader(src))

	w := newWalker(src, o)
	if err := ast.Walk(root, w.walk); err != nil {
		return nil, errors.Wrap(err, "walk markdown")
	}
	return w.result(), nil
}
