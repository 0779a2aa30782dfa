package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ByLCY/runflat/dsl"
	"github.com/ByLCY/runflat/layout"
	"github.com/ByLCY/runflat/markdown"
	"github.com/ByLCY/runflat/renderer"
	canvasrenderer "github.com/ByLCY/runflat/renderer/canvas"
)

type config struct {
	input   string
	output  string
	debug   string
	format  string
	utf16   bool
	math    bool
	verbose bool
}

func main() {
	input := flag.String("in", "examples/demo.runs", "run 文档或 Markdown 文件路径")
	output := flag.String("out", "", "PDF 图示输出路径（为空则不渲染）")
	debug := flag.String("debug", "", "构建结果调试 JSON 输出路径")
	format := flag.String("format", "auto", "输入格式：auto | runs | markdown")
	utf16 := flag.Bool("utf16", false, "Markdown 偏移按 UTF-16 码元计算")
	math := flag.Bool("math", false, "Markdown 启用 TeX 数学公式")
	labels := flag.Bool("labels", false, "在图示中绘制属性标签（需要 -font）")
	font := flag.String("font", "", "标签字体 TTF 路径")
	verbose := flag.Bool("v", false, "输出构建警告")
	flag.Parse()

	cfg := config{
		input:   *input,
		output:  *output,
		debug:   *debug,
		format:  *format,
		utf16:   *utf16,
		math:    *math,
		verbose: *verbose,
	}
	var r renderer.Renderer = canvasrenderer.NewRenderer(canvasrenderer.Options{
		Labels: *labels,
		Font:   canvasrenderer.Resource{Path: *font},
	})
	if err := run(cfg, os.Stdout, r); err != nil {
		log.Fatalf("runflat 失败: %v", err)
	}
	if cfg.output != "" {
		fmt.Printf("已生成 PDF：%s\n", cfg.output)
	}
}

// run 串联解析、规整与渲染，规整后的 run 逐行写入 stdout。
func run(cfg config, stdout io.Writer, r renderer.Renderer) error {
	result, err := build(cfg)
	if err != nil {
		return err
	}

	for _, seg := range result.Runs {
		fmt.Fprintln(stdout, seg)
	}

	if cfg.debug != "" {
		if err := writeDebug(result, cfg.debug); err != nil {
			return err
		}
	}

	if cfg.output == "" {
		return nil
	}
	if r == nil {
		return errors.New("renderer 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.output), 0o755); err != nil {
		return errors.Wrap(err, "创建输出目录失败")
	}
	pdfBytes, err := r.Render(result)
	if err != nil {
		return errors.Wrap(err, "渲染 PDF 失败")
	}
	if err := os.WriteFile(cfg.output, pdfBytes, 0o644); err != nil {
		return errors.Wrap(err, "写入 PDF 文件失败")
	}
	return nil
}

func build(cfg config) (*layout.Result, error) {
	format, err := detectFormat(cfg.format, cfg.input)
	if err != nil {
		return nil, err
	}

	var opts layout.BuildOptions
	if cfg.verbose {
		opts.Logger = log.New(os.Stderr, "runflat: ", 0)
	}

	switch format {
	case "markdown":
		data, err := os.ReadFile(cfg.input)
		if err != nil {
			return nil, errors.Wrapf(err, "无法读取 Markdown 文件 %s", cfg.input)
		}
		var mdOpts []markdown.Option
		if cfg.utf16 {
			mdOpts = append(mdOpts, markdown.WithUTF16Offsets())
		}
		if cfg.math {
			mdOpts = append(mdOpts, markdown.WithMath())
		}
		doc, err := markdown.Parse(string(data), mdOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "解析 Markdown 失败")
		}
		meta := layout.DocumentMeta{
			Title:   strings.TrimSuffix(filepath.Base(cfg.input), filepath.Ext(cfg.input)),
			Creator: "runflat",
		}
		result, err := layout.BuildRuns(doc.Runs, meta)
		if err != nil {
			return nil, errors.Wrap(err, "规整 run 失败")
		}
		result.Text = doc.Text
		return result, nil

	default:
		file, err := os.Open(cfg.input)
		if err != nil {
			return nil, errors.Wrapf(err, "无法打开 run 文档 %s", cfg.input)
		}
		defer file.Close()

		doc, err := dsl.Parse(file)
		if err != nil {
			return nil, errors.Wrap(err, "解析 DSL 失败")
		}
		result, err := layout.Build(doc, opts)
		if err != nil {
			return nil, errors.Wrap(err, "构建失败")
		}
		return result, nil
	}
}

func detectFormat(format, path string) (string, error) {
	switch format {
	case "runs", "markdown":
		return format, nil
	case "", "auto":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown":
			return "markdown", nil
		default:
			return "runs", nil
		}
	default:
		return "", errors.Newf("未知输入格式 %q", format)
	}
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return errors.Wrap(err, "创建调试目录失败")
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return errors.Wrap(err, "输出调试 JSON 失败")
	}
	return nil
}
