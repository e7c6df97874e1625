// Package flow runs templated actions over lists.
package flow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xyla-io/raspador/internal/actions/html"
	"github.com/xyla-io/raspador/internal/actions/list"
	"github.com/xyla-io/raspador/internal/actions/system"
	"github.com/xyla-io/raspador/internal/actions/test"
	"github.com/xyla-io/raspador/internal/actions/url"
	"github.com/xyla-io/raspador/internal/plan"
	"github.com/xyla-io/raspador/internal/utils"
)

const (
	foreachConcurrency = 8
	defaultItemTimeout = 30 * time.Second
)

var registry = plan.Builtin()

func HandleFlowAction(ctx context.Context, operation string, payload map[string]any) (map[string]any, error) {
	switch operation {
	case "foreach":
		return foreach(ctx, payload)
	default:
		return nil, fmt.Errorf("unknown flow operation: %s", operation)
	}
}

type itemError struct {
	Item  any    `json:"item"`
	Error string `json:"error"`
}

// foreach applies template {action, payload} to every item of items_json,
// replacing {{item}} and {{item.field}} in payload strings. Item failures
// are collected in errors_json and never stop the batch; results_json keeps
// item order and omits failed items.
func foreach(ctx context.Context, payload map[string]any) (map[string]any, error) {
	items, err := utils.GetArrayPayload(payload, "items_json")
	if err != nil {
		return nil, fmt.Errorf("flow.foreach: %w", err)
	}
	tpl, ok := payload["template"].(map[string]any)
	if !ok {
		return nil, errors.New("flow.foreach: payload.template must be an object")
	}
	action := strings.TrimSpace(utils.OptionalString(tpl, "action"))
	if action == "" {
		return nil, errors.New("flow.foreach: template.action is required")
	}
	tplPayload, ok := tpl["payload"].(map[string]any)
	if !ok {
		return nil, errors.New("flow.foreach: template.payload must be an object")
	}
	handle, err := handler(action)
	if err != nil {
		return nil, fmt.Errorf("flow.foreach: %w", err)
	}
	timeout := defaultItemTimeout
	if def, ok := registry.GetDefinition(action); ok {
		timeout = def.Timeout(defaultItemTimeout)
	}

	results := make([]map[string]any, len(items))
	var (
		mu     sync.Mutex
		failed []itemError
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(foreachConcurrency)
	for i, item := range items {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			itemPayload, _ := substitute(deepCopy(tplPayload), item).(map[string]any)
			itemCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			out, err := handle(itemCtx, itemPayload)
			if err != nil {
				mu.Lock()
				failed = append(failed, itemError{Item: item, Error: err.Error()})
				mu.Unlock()
				return nil
			}
			if out == nil {
				out = map[string]any{}
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compact := make([]map[string]any, 0, len(results))
	for _, r := range results {
		if r != nil {
			compact = append(compact, r)
		}
	}
	if failed == nil {
		failed = []itemError{}
	}
	return map[string]any{
		"results_json": utils.JSON(compact),
		"errors_json":  utils.JSON(failed),
	}, nil
}

type handlerFunc func(ctx context.Context, payload map[string]any) (map[string]any, error)

// handler resolves a template action. Browser and flow actions need the
// flight controller and cannot run per item.
func handler(action string) (handlerFunc, error) {
	category, op, ok := strings.Cut(action, ".")
	if !ok {
		return nil, fmt.Errorf("invalid action name %q; expected category.operation", action)
	}
	bind := func(h func(context.Context, string, map[string]any) (map[string]any, error)) handlerFunc {
		return func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			return h(ctx, op, payload)
		}
	}
	switch category {
	case "html":
		return bind(html.HandleHtmlAction), nil
	case "list":
		return bind(list.HandleListAction), nil
	case "url":
		return bind(url.HandleURLAction), nil
	case "system":
		return bind(system.HandleSystemAction), nil
	case "test":
		return bind(test.HandleTestAction), nil
	case "browser", "flow", "script":
		return nil, fmt.Errorf("%s actions cannot be templated", category)
	default:
		return nil, fmt.Errorf("unknown action category: %s", category)
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

var itemRe = regexp.MustCompile(`\{\{\s*item(?:\.([a-zA-Z0-9_\.]+))?\s*\}\}`)

// substitute replaces placeholders in every string leaf of v, in place.
func substitute(v any, item any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = substitute(val, item)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = substitute(val, item)
		}
		return t
	case string:
		return itemRe.ReplaceAllStringFunc(t, func(match string) string {
			path := strings.TrimSpace(itemRe.FindStringSubmatch(match)[1])
			if path == "" {
				return fmt.Sprint(item)
			}
			val, ok := getByPath(item, path)
			if !ok {
				return ""
			}
			return fmt.Sprint(val)
		})
	default:
		return v
	}
}

// getByPath walks dotted keys through objects and numeric indexes through
// arrays.
func getByPath(root any, path string) (any, bool) {
	cur := root
	for _, p := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[p]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 || n >= len(node) {
				return nil, false
			}
			cur = node[n]
		default:
			return nil, false
		}
	}
	return cur, true
}
