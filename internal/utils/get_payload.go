// Package utils reads typed values out of action payloads.
package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xyla-io/raspador/internal/browser"
)

func GetStringPayload(payload map[string]any, key string) (string, error) {
	value, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("payload is missing required key: '%s'", key)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("payload key '%s' has an invalid type (expected string)", key)
	}
	return strValue, nil
}

// OptionalString is the string at key, or "" when absent or not a string.
func OptionalString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func GetIntPayload(payload map[string]any, key string) (int, error) {
	v, ok := payload[key]
	if !ok {
		return 0, fmt.Errorf("payload is missing required key: '%s'", key)
	}
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("payload key '%s' invalid int: %v", key, err)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("payload key '%s' invalid int: %v", key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("payload key '%s' has unsupported type %T", key, v)
	}
}

// OptionalInt is the int at key, def when absent.
func OptionalInt(payload map[string]any, key string, def int) (int, error) {
	if _, ok := payload[key]; !ok {
		return def, nil
	}
	return GetIntPayload(payload, key)
}

// GetQueryPayload reads an element query from the xpath or selector key.
func GetQueryPayload(payload map[string]any) (browser.Query, error) {
	q := browser.Query{
		XPath:    OptionalString(payload, "xpath"),
		Selector: OptionalString(payload, "selector"),
	}
	if q.IsZero() {
		return q, fmt.Errorf("payload needs an 'xpath' or a 'selector'")
	}
	return q, nil
}

// GetArrayPayload decodes a JSON array held as a string, or passes a slice
// through.
func GetArrayPayload(payload map[string]any, key string) ([]any, error) {
	v, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("payload is missing required key: '%s'", key)
	}
	switch t := v.(type) {
	case []any:
		return t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return []any{}, nil
		}
		var arr []any
		if err := json.Unmarshal([]byte(t), &arr); err != nil {
			return nil, fmt.Errorf("payload key '%s' must be a JSON array: %w", key, err)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("payload key '%s' has unsupported type %T (expected JSON array)", key, v)
	}
}

// JSON marshals v for a result value.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
