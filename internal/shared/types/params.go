package types

import (
	"encoding/json"
	"fmt"
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Args holds request arguments in the order the caller supplied them.
type Args = orderedmap.OrderedMap[string, any]

// NewArgs builds Args from alternating key/value pairs.
func NewArgs(kv ...any) *Args {
	args := orderedmap.New[string, any]()
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		args.Set(key, kv[i+1])
	}
	return args
}

// Params is a request to run one operation against one service
type Params struct {
	Service   string         `json:"service"`
	Operation string         `json:"operation"`
	Database  string         `json:"database,omitempty"`
	Args      *Args          `json:"args,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// Arg returns the raw argument value for key
func (p Params) Arg(key string) (any, bool) {
	if p.Args == nil {
		return nil, false
	}
	return p.Args.Get(key)
}

// Values returns argument values in insertion order, keys discarded.
func (p Params) Values() []any {
	if p.Args == nil {
		return nil
	}
	out := make([]any, 0, p.Args.Len())
	for pair := p.Args.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// String returns a string argument, or "" when absent or not a string
func (p Params) String(key string) string {
	v, ok := p.Arg(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Int returns an integer argument, accepting JSON numbers and numeric strings
func (p Params) Int(key string, def int) int {
	v, ok := p.Arg(key)
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	case string:
		var i int
		if _, err := fmt.Sscanf(n, "%d", &i); err == nil {
			return i
		}
	}
	return def
}

// Bool returns a boolean argument
func (p Params) Bool(key string, def bool) bool {
	v, ok := p.Arg(key)
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1" || b == "yes"
	}
	return def
}

// Slice returns an array argument
func (p Params) Slice(key string) []any {
	v, ok := p.Arg(key)
	if !ok {
		return nil
	}
	s, _ := v.([]any)
	return s
}

// Map returns an object argument
func (p Params) Map(key string) map[string]any {
	v, ok := p.Arg(key)
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case map[string]any:
		return m
	case *Args:
		out := make(map[string]any, m.Len())
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			out[pair.Key] = pair.Value
		}
		return out
	}
	return nil
}

// Require returns INVALID_PARAMS listing the keys with no non-empty value.
func (p Params) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		v, ok := p.Arg(k)
		if !ok || v == nil {
			missing = append(missing, k)
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return NewError(CodeInvalidParams,
		fmt.Sprintf("missing required arguments for %s.%s", p.Service, p.Operation),
		map[string]any{"missing": missing, "operation": p.Operation})
}
