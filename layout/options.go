package layout

import "log"

// BuildOptions 配置构建阶段的可选依赖。
type BuildOptions struct {
	// Logger receives warnings about ignored statements and unused styles.
	// Nil keeps the builder silent.
	Logger *log.Logger
}

func (o BuildOptions) warnf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}
