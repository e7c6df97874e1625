// Package url resolves scraped links.
package url

import (
	"context"
	"fmt"

	"github.com/xyla-io/raspador/internal/parse"
	"github.com/xyla-io/raspador/internal/utils"
)

func normalize(payload map[string]any) (map[string]any, error) {
	urls, err := utils.GetArrayPayload(payload, "urls_json")
	if err != nil {
		return nil, err
	}
	base := utils.OptionalString(payload, "base_url")
	out := make([]string, 0, len(urls))
	for i, u := range urls {
		s, ok := u.(string)
		if !ok {
			return nil, fmt.Errorf("urls_json item %d is %T, expected a string", i, u)
		}
		out = append(out, parse.Absolute(base, s))
	}
	return map[string]any{"urls_json": utils.JSON(out)}, nil
}

func HandleURLAction(_ context.Context, operation string, payload map[string]any) (map[string]any, error) {
	switch operation {
	case "normalize":
		return normalize(payload)
	default:
		return nil, fmt.Errorf("unknown url operation: %s", operation)
	}
}
