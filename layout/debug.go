package layout

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
)

// WriteDebugJSON 将构建结果输出为 JSON，便于调试或比对。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal debug json")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}
