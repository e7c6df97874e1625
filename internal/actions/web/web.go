// Package web drives the pilot's browser for browser.* actions.
package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xyla-io/raspador/internal/browser"
	"github.com/xyla-io/raspador/internal/utils"
)

const defaultLocateTimeout = 10 * time.Second

// ErrNoBrowser is returned when a browser action runs without a pilot browser.
var ErrNoBrowser = errors.New("no browser")

// ElementNotFoundError reports a query that matched nothing in time.
type ElementNotFoundError struct {
	Query browser.Query
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s", e.Query)
}

func locate(ctx context.Context, b browser.Browser, payload map[string]any) (browser.Element, error) {
	q, err := utils.GetQueryPayload(payload)
	if err != nil {
		return nil, err
	}
	ms, err := utils.OptionalInt(payload, "timeout_ms", int(defaultLocateTimeout/time.Millisecond))
	if err != nil {
		return nil, err
	}
	el, err := b.Locate(ctx, q, time.Duration(ms)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, &ElementNotFoundError{Query: q}
	}
	return el, nil
}

func currentURL(ctx context.Context, b browser.Browser) (map[string]any, error) {
	u, err := b.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"url": u}, nil
}

func HandleWebAction(ctx context.Context, b browser.Browser, operation string, payload map[string]any) (map[string]any, error) {
	if b == nil {
		return nil, ErrNoBrowser
	}
	switch operation {
	case "navigate":
		u, err := utils.GetStringPayload(payload, "url")
		if err != nil {
			return nil, err
		}
		if err := b.Navigate(ctx, u); err != nil {
			return nil, err
		}
		return currentURL(ctx, b)
	case "click":
		el, err := locate(ctx, b, payload)
		if err != nil {
			return nil, err
		}
		if err := el.Click(ctx); err != nil {
			return nil, err
		}
		return currentURL(ctx, b)
	case "locate":
		el, err := locate(ctx, b, payload)
		if err != nil {
			return nil, err
		}
		text, err := el.Text(ctx)
		if err != nil {
			return nil, err
		}
		html, err := el.HTML(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"text": text, "html": html}, nil
	case "source":
		html, err := b.CurrentSource(ctx)
		if err != nil {
			return nil, err
		}
		u, err := b.CurrentURL(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"html": html, "url": u}, nil
	case "execute":
		script, err := utils.GetStringPayload(payload, "script")
		if err != nil {
			return nil, err
		}
		var el browser.Element
		if _, err := utils.GetQueryPayload(payload); err == nil {
			if el, err = locate(ctx, b, payload); err != nil {
				return nil, err
			}
		}
		result, err := b.Execute(ctx, script, el)
		if err != nil {
			return nil, err
		}
		return map[string]any{"result": result}, nil
	default:
		return nil, fmt.Errorf("unknown browser operation: %s", operation)
	}
}
