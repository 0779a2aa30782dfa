package layout

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ByLCY/runflat/dsl"
	"github.com/ByLCY/runflat/runs"
)

// blockAttributes converts the assignments of a `{ ... }` body into typed attributes.
// Later assignments of the same key win.
func blockAttributes(block *dsl.Block) (runs.Attributes, error) {
	attrs := runs.Attributes{}
	if block == nil {
		return attrs, nil
	}
	for _, stmt := range block.Statements {
		if stmt.Assignment == nil {
			return nil, errors.Newf("%s: 属性块中只允许 key: value", stmt.Command.Pos)
		}
		v, err := convertValue(stmt.Assignment.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "属性 %s", stmt.Assignment.Key)
		}
		attrs[stmt.Assignment.Key] = v
	}
	return attrs, nil
}

// convertValue 将 DSL 值转换为属性值：
//
//	"text"    -> string
//	12 / 1.5  -> int / float64
//	12pt      -> Length
//	#ff0000   -> Color
//	true      -> bool
//	[a, b]    -> []any
func convertValue(val *dsl.Value) (any, error) {
	switch {
	case val == nil:
		return nil, errors.New("缺少属性值")
	case val.String != nil:
		return string(*val.String), nil
	case val.Number != nil:
		return parseNumber(*val.Number)
	case val.Color != nil:
		return ParseColor(*val.Color)
	case val.BadColor != nil:
		return nil, errors.Newf("%s: 颜色值 %s 需要 3、6 或 8 位十六进制", val.Pos, *val.BadColor)
	case val.Array != nil:
		out := make([]any, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			v, err := convertValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case val.Ident != nil:
		switch *val.Ident {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return *val.Ident, nil
	default:
		return nil, errors.New("无法识别的属性值")
	}
}

func parseNumber(raw string) (any, error) {
	if hasUnitSuffix(raw) {
		return ParseLength(raw)
	}
	if !strings.Contains(raw, ".") {
		v, err := strconv.Atoi(raw)
		return v, errors.Wrapf(err, "无法解析整数 %q", raw)
	}
	v, err := strconv.ParseFloat(raw, 64)
	return v, errors.Wrapf(err, "无法解析数字 %q", raw)
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Ident != nil:
		return *val.Ident
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
