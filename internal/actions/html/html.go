// Package html extracts data from page sources held in payloads.
package html

import (
	"context"
	"fmt"

	"github.com/xyla-io/raspador/internal/parse"
	"github.com/xyla-io/raspador/internal/utils"
)

func document(payload map[string]any) (*parse.Document, error) {
	source, err := utils.GetStringPayload(payload, "html")
	if err != nil {
		return nil, err
	}
	doc, err := parse.New(source, utils.OptionalString(payload, "base_url"))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func handleLinks(_ context.Context, payload map[string]any) (map[string]any, error) {
	doc, err := document(payload)
	if err != nil {
		return nil, err
	}
	links := doc.Links()
	if links == nil {
		links = []parse.Link{}
	}
	return map[string]any{"links_json": utils.JSON(links)}, nil
}

func handleSelectAll(_ context.Context, payload map[string]any) (map[string]any, error) {
	selector, err := utils.GetStringPayload(payload, "selector")
	if err != nil {
		return nil, err
	}
	doc, err := document(payload)
	if err != nil {
		return nil, err
	}
	items := doc.SelectAll(selector)
	if items == nil {
		items = []string{}
	}
	return map[string]any{"items_json": utils.JSON(items)}, nil
}

func handleInnerText(_ context.Context, payload map[string]any) (map[string]any, error) {
	doc, err := document(payload)
	if err != nil {
		return nil, err
	}
	return map[string]any{"text": doc.InnerText()}, nil
}

// handleLocate turns a CSS selector into absolute XPaths; xpath is the
// first match.
func handleLocate(_ context.Context, payload map[string]any) (map[string]any, error) {
	selector, err := utils.GetStringPayload(payload, "selector")
	if err != nil {
		return nil, err
	}
	doc, err := document(payload)
	if err != nil {
		return nil, err
	}
	xpaths := doc.Locate(selector)
	if len(xpaths) == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return map[string]any{"xpaths_json": utils.JSON(xpaths), "xpath": xpaths[0]}, nil
}

func HandleHtmlAction(ctx context.Context, operation string, payload map[string]any) (map[string]any, error) {
	switch operation {
	case "links":
		return handleLinks(ctx, payload)
	case "select_all":
		return handleSelectAll(ctx, payload)
	case "inner_text":
		return handleInnerText(ctx, payload)
	case "locate":
		return handleLocate(ctx, payload)
	default:
		return nil, fmt.Errorf("unknown html operation: %s", operation)
	}
}
