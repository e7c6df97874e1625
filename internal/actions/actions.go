// Package actions runs plan actions that finish within one attempt.
// flow.quit, flow.interact, flow.break and script.run steer the controller
// and are built as maneuvers by the executor instead.
package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/xyla-io/raspador/internal/actions/flow"
	"github.com/xyla-io/raspador/internal/actions/html"
	"github.com/xyla-io/raspador/internal/actions/list"
	"github.com/xyla-io/raspador/internal/actions/system"
	"github.com/xyla-io/raspador/internal/actions/test"
	"github.com/xyla-io/raspador/internal/actions/url"
	"github.com/xyla-io/raspador/internal/actions/web"
	"github.com/xyla-io/raspador/internal/browser"
)

// Execute runs action with payload and returns its outputs. b may be nil for
// actions that do not touch the page.
func Execute(ctx context.Context, b browser.Browser, action string, payload map[string]any) (map[string]any, error) {
	category, operation, ok := strings.Cut(action, ".")
	if !ok || strings.Contains(operation, ".") {
		return nil, fmt.Errorf("invalid action type format: '%s'", action)
	}

	switch category {
	case "browser":
		return web.HandleWebAction(ctx, b, operation, payload)
	case "html":
		return html.HandleHtmlAction(ctx, operation, payload)
	case "url":
		return url.HandleURLAction(ctx, operation, payload)
	case "list":
		return list.HandleListAction(ctx, operation, payload)
	case "system":
		return system.HandleSystemAction(ctx, operation, payload)
	case "test":
		return test.HandleTestAction(ctx, operation, payload)
	case "flow":
		return flow.HandleFlowAction(ctx, operation, payload)
	}
	return nil, fmt.Errorf("unknown action category: %s", category)
}

// UsesBrowser reports whether action acts on the page.
func UsesBrowser(action string) bool {
	return strings.HasPrefix(action, "browser.")
}
