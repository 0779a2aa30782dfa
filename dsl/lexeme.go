package dsl

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/cockroachdb/errors"
)

// Lexeme 是指令参数的原始词法单元，例如 `run 0 10 Base` 中的 0、10、Base。
// 字符串在捕获时已去掉引号，Raw 保留原文用于报错。
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable. Arguments end at a newline, `;` or a brace.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if endsArgs(tok) {
		return participle.NextMatch
	}
	lexeme, err := lexemeFromToken(*lex.Next())
	if err != nil {
		return err
	}
	*l = lexeme
	return nil
}

func (l *Lexeme) IsNumber() bool { return l.Type == "Number" }

func (l *Lexeme) IsIdent() bool { return l.Type == "Ident" }

// Int parses the lexeme as an integer offset. Unit-suffixed or fractional numbers are rejected.
func (l *Lexeme) Int() (int, error) {
	if !l.IsNumber() {
		return 0, errors.Newf("%s: %q 不是数字", l.Pos, l.Raw)
	}
	v, err := strconv.Atoi(l.Value)
	if err != nil {
		return 0, errors.Newf("%s: 偏移 %s 必须是整数", l.Pos, l.Raw)
	}
	return v, nil
}

func (l *Lexeme) String() string { return l.Raw }

func endsArgs(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case newlineTokenType, rbraceTokenType, lbraceTokenType:
		return true
	case symbolTokenType:
		return tok.Value == ";"
	}
	return false
}

func lexemeFromToken(tok lexer.Token) (Lexeme, error) {
	l := Lexeme{Type: tokenNames[tok.Type], Value: tok.Value, Raw: tok.Value, Pos: tok.Pos}
	if l.Type == "" {
		l.Type = fmt.Sprintf("#%d", tok.Type)
	}
	if tok.Type == stringTokenType {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, errors.Wrapf(err, "unquote %s", tok.Value)
		}
		l.Value = unquoted
	}
	return l, nil
}
