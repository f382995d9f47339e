package eval

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// evalPath looks path up in the JSON encoding of the input, or of the first
// argument when there is no input. A missing path yields nil.
func evalPath(path string, args []any, in Input) (Result, error) {
	v, ok := in.Value()
	if !ok && len(args) > 0 {
		v = args[0]
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Result{}, fmt.Errorf("path: encode input: %w", err)
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return Value(nil), nil
	}
	return Value(res.Value()), nil
}
