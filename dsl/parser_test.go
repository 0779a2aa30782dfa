package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/runflat/dsl"
)

const sampleDSL = `
doc Sample v1 {
  meta {
    title: "Nested spans"
    keywords: [
      "layout"
      "runs"
    ]
  }

  // 样式可以继承
  styles {
    style Base {
      color: #333333
      size: 12pt
    }
    style Link extends Base { link: "https://example.com"; underline: true }
  }

  runs {
    run 0 10 Base
    run 3 6 Link { color: #0F62FE }
    mark 5 { anchor: "note" } # trailing comment
    run -2 1 { weight: 1.5 }
  }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if doc.Name != "Sample" {
		t.Fatalf("expected document name Sample, got %s", doc.Name)
	}
	if doc.Version != "v1" {
		t.Fatalf("expected version v1, got %s", doc.Version)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(doc.Sections))
	}
	kinds := []string{doc.Sections[0].Kind(), doc.Sections[1].Kind(), doc.Sections[2].Kind()}
	if strings.Join(kinds, ",") != "meta,styles,runs" {
		t.Fatalf("unexpected section kinds: %v", kinds)
	}

	meta := doc.Sections[0].Meta
	title := meta.Block.Statements[0].Assignment
	if title == nil || title.Key != "title" {
		t.Fatalf("expected title assignment, got %+v", meta.Block.Statements[0])
	}
	if got := string(*title.Value.String); got != "Nested spans" {
		t.Fatalf("expected title 'Nested spans', got %s", got)
	}
	keywords := meta.Block.Statements[1].Assignment
	if keywords == nil || keywords.Value.Array == nil || len(keywords.Value.Array.Values) != 2 {
		t.Fatalf("expected keywords array with 2 entries, got %+v", keywords)
	}

	styles := doc.Sections[1].Styles
	if len(styles.Block.Statements) != 2 {
		t.Fatalf("expected 2 styles, got %d", len(styles.Block.Statements))
	}
	link := styles.Block.Statements[1].Command
	if link == nil || link.Name != "style" {
		t.Fatalf("expected style command, got %+v", styles.Block.Statements[1])
	}
	if got := argsToString(link.Args); got != "Link extends Base" {
		t.Fatalf("unexpected style args: %s", got)
	}
	if link.Block == nil || len(link.Block.Statements) != 2 {
		t.Fatalf("expected two inline assignments on Link, got %+v", link.Block)
	}
	underline := link.Block.Statements[1].Assignment
	if underline.Value.Ident == nil || *underline.Value.Ident != "true" {
		t.Fatalf("expected ident value true, got %+v", underline.Value)
	}
	base := styles.Block.Statements[0].Command
	size := base.Block.Statements[1].Assignment
	if size.Value.Number == nil || *size.Value.Number != "12pt" {
		t.Fatalf("expected number with unit, got %+v", size.Value)
	}
}

func TestParseRunCommands(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	block := doc.Sections[2].Runs.Block
	if len(block.Statements) != 4 {
		t.Fatalf("expected 4 run statements, got %d", len(block.Statements))
	}

	cases := []struct {
		name string
		args string
		body int
	}{
		{"run", "0 10 Base", 0},
		{"run", "3 6 Link", 1},
		{"mark", "5", 1},
		{"run", "-2 1", 1},
	}
	for i, c := range cases {
		cmd := block.Statements[i].Command
		if cmd == nil || cmd.Name != c.name {
			t.Fatalf("statement %d: expected %s command, got %+v", i, c.name, block.Statements[i])
		}
		if got := argsToString(cmd.Args); got != c.args {
			t.Fatalf("statement %d: expected args %q, got %q", i, c.args, got)
		}
		n := 0
		if cmd.Block != nil {
			n = len(cmd.Block.Statements)
		}
		if n != c.body {
			t.Fatalf("statement %d: expected %d body statements, got %d", i, c.body, n)
		}
	}

	color := block.Statements[1].Command.Block.Statements[0].Assignment
	if color.Value.Color == nil || *color.Value.Color != "#0F62FE" {
		t.Fatalf("expected colour literal, got %+v", color.Value)
	}
	if block.Statements[0].Command.Args[0].Type != "Number" {
		t.Fatalf("expected Number token, got %s", block.Statements[0].Command.Args[0].Type)
	}
}

func TestParseRejectsUnterminatedBlock(t *testing.T) {
	if _, err := dsl.ParseString("doc X v1 {\n runs {\n run 0 1\n"); err == nil {
		t.Fatalf("expected parse error for unterminated document")
	}
}

func argsToString(args []*dsl.Lexeme) string {
	values := make([]string, 0, len(args))
	for _, a := range args {
		values = append(values, a.Value)
	}
	return strings.Join(values, " ")
}

func TestLexemeInt(t *testing.T) {
	doc, err := dsl.ParseString("doc X v1 {\n runs {\n run 12 -3 1.5 1mm Base \"q\"\n }\n}\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	args := doc.Sections[0].Runs.Block.Statements[0].Command.Args
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(args))
	}
	for i, want := range []int{12, -3} {
		got, err := args[i].Int()
		if err != nil || got != want {
			t.Fatalf("arg %d: expected %d, got %d (%v)", i, want, got, err)
		}
	}
	for _, a := range args[2:] {
		if _, err := a.Int(); err == nil {
			t.Fatalf("expected %s to be rejected as offset", a)
		}
	}
	if !args[4].IsIdent() || args[5].IsIdent() {
		t.Fatalf("unexpected ident classification: %s=%v %s=%v", args[4], args[4].IsIdent(), args[5], args[5].IsIdent())
	}
	if args[5].Value != "q" || args[5].Raw != `"q"` {
		t.Fatalf("expected unquoted string value, got %+v", args[5])
	}
}

func TestParseKeepsMalformedColour(t *testing.T) {
	doc, err := dsl.ParseString("doc X v1 {\n runs {\n run 0 1 { color: #abcd; bold: true }\n }\n}\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	stmts := doc.Sections[0].Runs.Block.Statements[0].Command.Block.Statements
	if len(stmts) != 2 {
		t.Fatalf("expected the rest of the line to survive, got %d statements", len(stmts))
	}
	v := stmts[0].Assignment.Value
	if v.BadColor == nil || *v.BadColor != "#abcd" || v.Color != nil {
		t.Fatalf("expected #abcd as malformed colour, got %+v", v)
	}
	if v.Pos.Line != 3 {
		t.Fatalf("expected value on line 3, got %s", v.Pos)
	}
}
