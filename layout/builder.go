package layout

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ByLCY/runflat/dsl"
	"github.com/ByLCY/runflat/runs"
)

// Build 根据 DSL AST 收集样式与源 run，并生成规整后的 run 序列。
func Build(doc *dsl.Document, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, errors.New("文档为空")
	}

	styles, err := collectStyles(doc, opts)
	if err != nil {
		return nil, err
	}
	used := map[string]bool{}
	source, err := collectRuns(doc, styles, used, opts)
	if err != nil {
		return nil, err
	}
	for _, name := range sortedStyleNames(styles) {
		if !used[name] {
			opts.warnf("style %s 未被任何 run 使用", name)
		}
	}

	res, err := BuildRuns(source, collectMeta(doc))
	if err != nil {
		return nil, err
	}
	res.Styles = styles
	return res, nil
}

// BuildRuns flattens runs coming from any producer and wraps them in a Result.
func BuildRuns(source []runs.Run, meta DocumentMeta) (*Result, error) {
	flat, err := runs.Flatten(source)
	if err != nil {
		return nil, errors.Wrap(err, "flatten runs")
	}
	if source == nil {
		source = []runs.Run{}
	}
	return &Result{
		Meta:   meta,
		Source: source,
		Runs:   flat,
	}, nil
}

func collectRuns(doc *dsl.Document, styles map[string]Style, used map[string]bool, opts BuildOptions) ([]runs.Run, error) {
	var out []runs.Run
	for _, section := range doc.Sections {
		if section.Runs == nil || section.Runs.Block == nil {
			continue
		}
		for _, stmt := range section.Runs.Block.Statements {
			if stmt.Command == nil {
				opts.warnf("runs 段落中忽略赋值 %s", stmt.Assignment.Key)
				continue
			}
			cmd := stmt.Command
			var arity int
			switch cmd.Name {
			case "run":
				arity = 2
			case "mark":
				arity = 1
			default:
				opts.warnf("%s: 忽略未知指令 %s", cmd.Pos, cmd.Name)
				continue
			}
			run, err := parseRunCommand(cmd, arity, styles, used)
			if err != nil {
				return nil, err
			}
			out = append(out, run)
		}
	}
	return out, nil
}

// parseRunCommand handles `run <start> <end> [Style] {...}` and `mark <offset> [Style] {...}`.
func parseRunCommand(cmd *dsl.Command, arity int, styles map[string]Style, used map[string]bool) (runs.Run, error) {
	if len(cmd.Args) < arity {
		return runs.Run{}, errors.Newf("%s: %s 需要 %d 个整数偏移，实际 %d 个参数", cmd.Pos, cmd.Name, arity, len(cmd.Args))
	}
	offsets := make([]int, arity)
	for i := range offsets {
		v, err := cmd.Args[i].Int()
		if err != nil {
			return runs.Run{}, errors.Wrapf(err, "%s 的第 %d 个参数", cmd.Name, i+1)
		}
		offsets[i] = v
	}

	attrs := runs.Attributes{}
	rest := cmd.Args[arity:]
	switch len(rest) {
	case 0:
	case 1:
		if !rest[0].IsIdent() {
			return runs.Run{}, errors.Newf("%s: %s 的样式参数 %s 必须是标识符", rest[0].Pos, cmd.Name, rest[0])
		}
		name := rest[0].Value
		style, ok := styles[name]
		if !ok {
			return runs.Run{}, errors.Newf("%s: style %s 未定义", rest[0].Pos, name)
		}
		used[name] = true
		attrs.Merge(style.Props)
	default:
		return runs.Run{}, errors.Newf("%s: %s 参数过多", cmd.Pos, cmd.Name)
	}

	inline, err := blockAttributes(cmd.Block)
	if err != nil {
		return runs.Run{}, err
	}
	attrs.Merge(inline)

	run := runs.Run{Start: offsets[0], End: offsets[0], Attributes: attrs}
	if arity == 2 {
		run.End = offsets[1]
	}
	return run, nil
}

func collectStyles(doc *dsl.Document, opts BuildOptions) (map[string]Style, error) {
	raw := map[string]Style{}
	for _, section := range doc.Sections {
		if section.Styles == nil || section.Styles.Block == nil {
			continue
		}
		for _, stmt := range section.Styles.Block.Statements {
			if stmt.Command == nil {
				opts.warnf("styles 段落中忽略赋值 %s", stmt.Assignment.Key)
				continue
			}
			if stmt.Command.Name != "style" {
				opts.warnf("%s: styles 段落中忽略未知指令 %s", stmt.Command.Pos, stmt.Command.Name)
				continue
			}
			style, err := parseStyle(stmt.Command)
			if err != nil {
				return nil, err
			}
			if _, dup := raw[style.Name]; dup {
				return nil, errors.Newf("%s: style %s 重复定义", stmt.Command.Pos, style.Name)
			}
			raw[style.Name] = style
		}
	}
	return resolveStyles(raw)
}

func parseStyle(cmd *dsl.Command) (Style, error) {
	if len(cmd.Args) == 0 {
		return Style{}, errors.Newf("%s: style 缺少名称", cmd.Pos)
	}
	style := Style{Name: cmd.Args[0].Value}
	switch {
	case len(cmd.Args) == 1:
	case len(cmd.Args) == 3 && strings.EqualFold(cmd.Args[1].Value, "extends"):
		style.Extends = cmd.Args[2].Value
	default:
		return Style{}, errors.Newf("%s: style %s 的声明无法解析", cmd.Pos, style.Name)
	}
	props, err := blockAttributes(cmd.Block)
	if err != nil {
		return Style{}, errors.Wrapf(err, "style %s", style.Name)
	}
	style.Props = props
	return style, nil
}

// resolveStyles 展开 extends 继承链，子样式覆盖父样式。
func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, errors.Newf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, errors.Newf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := runs.Attributes{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			props.Merge(parent.Props)
		}
		props.Merge(style.Props)
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for _, name := range sortedStyleNames(styles) {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func sortedStyleNames(styles map[string]Style) []string {
	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectMeta(doc *dsl.Document) DocumentMeta {
	meta := DocumentMeta{
		Creator: "runflat",
	}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = valueToString(stmt.Assignment.Value)
			case "author":
				meta.Author = valueToString(stmt.Assignment.Value)
			case "subject":
				meta.Subject = valueToString(stmt.Assignment.Value)
			case "creator":
				meta.Creator = valueToString(stmt.Assignment.Value)
			case "keywords":
				meta.Keywords = valueToStringSlice(stmt.Assignment.Value)
			}
		}
	}
	return meta
}
