package renderer

import "github.com/ByLCY/runflat/layout"

// Renderer 将构建结果输出为最终文件，例如 PDF 图示。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}
