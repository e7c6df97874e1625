// Package list reshapes JSON arrays produced by earlier actions.
package list

import (
	"context"
	"fmt"
	"strings"

	"github.com/xyla-io/raspador/internal/utils"
)

// pluck reads field from each object; a dotted field walks nested objects.
// Items without the field are left out.
func pluck(_ context.Context, payload map[string]any) (map[string]any, error) {
	items, err := utils.GetArrayPayload(payload, "list_json")
	if err != nil {
		return nil, err
	}
	field, err := utils.GetStringPayload(payload, "field")
	if err != nil {
		return nil, err
	}
	path := strings.Split(field, ".")
	values := make([]string, 0, len(items))
	for i, item := range items {
		if _, ok := item.(map[string]any); !ok {
			return nil, fmt.Errorf("list_json item %d is %T, expected an object", i, item)
		}
		if v, ok := lookup(item, path); ok {
			values = append(values, fmt.Sprint(v))
		}
	}
	return map[string]any{"values_json": utils.JSON(values)}, nil
}

func lookup(v any, path []string) (any, bool) {
	for _, key := range path {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return v, true
}

// unique keeps the first of each value, compared by their printed form.
func unique(_ context.Context, payload map[string]any) (map[string]any, error) {
	items, err := utils.GetArrayPayload(payload, "list_json")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(items))
	kept := make([]string, 0, len(items))
	for _, v := range items {
		s := fmt.Sprint(v)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		kept = append(kept, s)
	}
	return map[string]any{"list_json": utils.JSON(kept)}, nil
}

func concat(_ context.Context, payload map[string]any) (map[string]any, error) {
	a, err := utils.GetArrayPayload(payload, "a_json")
	if err != nil {
		return nil, err
	}
	b, err := utils.GetArrayPayload(payload, "b_json")
	if err != nil {
		return nil, err
	}
	joined := make([]any, 0, len(a)+len(b))
	joined = append(append(joined, a...), b...)
	return map[string]any{"list_json": utils.JSON(joined)}, nil
}

func HandleListAction(ctx context.Context, operation string, payload map[string]any) (map[string]any, error) {
	switch operation {
	case "pluck":
		return pluck(ctx, payload)
	case "unique":
		return unique(ctx, payload)
	case "concat":
		return concat(ctx, payload)
	default:
		return nil, fmt.Errorf("unknown list operation: %s", operation)
	}
}
