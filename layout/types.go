package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ByLCY/runflat/runs"
)

// 该文件定义构建结果与样式描述，供 flatten、渲染与调试 JSON 共用。

// Result 保存源 run 与规整后的 run。
type Result struct {
	Meta   DocumentMeta     `json:"meta"`
	Styles map[string]Style `json:"styles,omitempty"`
	// Text is the plain text the offsets refer to, when the producer has one.
	Text   string     `json:"text,omitempty"`
	Source []runs.Run `json:"source"`
	Runs   []runs.Run `json:"runs"`
}

// MaxOffset returns the largest offset referenced by any source run, or 0.
func (r *Result) MaxOffset() int {
	if r == nil {
		return 0
	}
	max := 0
	for _, run := range r.Source {
		if run.End > max {
			max = run.End
		}
		if run.Start > max {
			max = run.Start
		}
	}
	return max
}

// MinOffset returns the smallest offset referenced by any source run, or 0.
func (r *Result) MinOffset() int {
	if r == nil || len(r.Source) == 0 {
		return 0
	}
	min := r.Source[0].Start
	for _, run := range r.Source {
		if run.Start < min {
			min = run.Start
		}
	}
	return min
}

// Style 是可继承的具名属性集合。
type Style struct {
	Name    string          `json:"name"`
	Extends string          `json:"extends,omitempty"`
	Props   runs.Attributes `json:"props"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa; alpha is dropped.
func ParseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(value, "#")
	switch len(hex) {
	case 3:
		hex = strings.Repeat(hex[0:1], 2) + strings.Repeat(hex[1:2], 2) + strings.Repeat(hex[2:3], 2)
	case 6, 8:
		hex = hex[:6]
	default:
		return Color{}, errors.Newf("颜色值 %s 无法解析", value)
	}
	var c Color
	for i, dst := range []*int{&c.R, &c.G, &c.B} {
		v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return Color{}, errors.Wrapf(err, "颜色值 %s 无法解析", value)
		}
		*dst = int(v)
	}
	return c, nil
}
