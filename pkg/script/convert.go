package script

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/Shopify/go-lua"
	"github.com/aretw0/warp/pkg/pipeline"
)

func pushValue(l *lua.State, v any) {
	switch val := v.(type) {
	case nil, pipeline.Empty:
		l.PushNil()
	case bool:
		l.PushBoolean(val)
	case string:
		l.PushString(val)
	case int:
		l.PushInteger(val)
	case int64:
		l.PushInteger(int(val))
	case int32:
		l.PushInteger(int(val))
	case float64:
		l.PushNumber(val)
	case float32:
		l.PushNumber(float64(val))
	case json.Number:
		if i, err := val.Int64(); err == nil {
			l.PushInteger(int(i))
		} else if f, err := val.Float64(); err == nil {
			l.PushNumber(f)
		} else {
			l.PushString(val.String())
		}
	case []any:
		l.CreateTable(len(val), 0)
		for i, item := range val {
			pushValue(l, item)
			l.RawSetInt(-2, i+1)
		}
	case []string:
		l.CreateTable(len(val), 0)
		for i, item := range val {
			l.PushString(item)
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		l.CreateTable(0, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pushValue(l, val[k])
			l.SetField(-2, k)
		}
	case error:
		l.PushString(val.Error())
	default:
		l.PushString(fmt.Sprint(val))
	}
}

func toGo(l *lua.State, index int) any {
	switch l.TypeOf(index) {
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		return normalizeNumber(n)
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(l, index)
	default:
		return nil
	}
}

// tableToGo returns a []any for proper sequences and a map[string]any otherwise.
// Non-string keys of maps are formatted with %v.
func tableToGo(l *lua.State, index int) any {
	index = l.AbsIndex(index)

	isArray := true
	maxIndex, count := 0, 0
	l.PushNil()
	for l.Next(index) {
		count++
		if isArray {
			if idx, ok := l.ToInteger(-2); ok && l.TypeOf(-2) == lua.TypeNumber && idx > 0 {
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		l.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		out := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			l.RawGetInt(index, i)
			out = append(out, toGo(l, -1))
			l.Pop(1)
		}
		return out
	}

	out := make(map[string]any, count)
	l.PushNil()
	for l.Next(index) {
		var key string
		if l.TypeOf(-2) == lua.TypeString {
			key, _ = l.ToString(-2)
		} else {
			key = fmt.Sprint(toGo(l, -2))
		}
		out[key] = toGo(l, -1)
		l.Pop(1)
	}
	return out
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 && math.Abs(value) < 1<<53 {
		return int(value)
	}
	return value
}
