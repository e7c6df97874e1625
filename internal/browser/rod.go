package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/xyla-io/raspador/internal/logger"
)

// LaunchOptions configures Launch.
type LaunchOptions struct {
	// ControlURL connects to a running browser instead of launching one.
	ControlURL string
	Bin        string
	Headless   bool
}

// Rod is a Browser backed by a Chrome DevTools session.
type Rod struct {
	browser *rod.Browser
	page    *rod.Page
}

var errNotFound = errors.New("element not found")

func Launch(ctx context.Context, opts LaunchOptions) (*Rod, error) {
	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	logger.Log.Infof("[Browser] Connected to %s", controlURL)
	return &Rod{browser: b, page: page}, nil
}

func (r *Rod) Navigate(ctx context.Context, url string) error {
	p := r.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return p.WaitLoad()
}

// Locate polls the page until q matches or timeout elapses.
func (r *Rod) Locate(ctx context.Context, q Query, timeout time.Duration) (Element, error) {
	if q.IsZero() {
		return nil, errors.New("empty query")
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = timeout

	var found *rod.Element
	err := backoff.Retry(func() error {
		p := r.page.Context(ctx)
		var (
			ok  bool
			el  *rod.Element
			err error
		)
		if q.XPath != "" {
			ok, el, err = p.HasX(q.XPath)
		} else {
			ok, el, err = p.Has(q.Selector)
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotFound
		}
		found = el
		return nil
	}, backoff.WithContext(bo, ctx))

	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", q, err)
	}
	return &rodElement{el: found}, nil
}

func (r *Rod) CurrentSource(ctx context.Context) (string, error) {
	return r.page.Context(ctx).HTML()
}

func (r *Rod) CurrentURL(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (r *Rod) Execute(ctx context.Context, script string, el Element) (any, error) {
	var (
		res *proto.RuntimeRemoteObject
		err error
	)
	if re, ok := el.(*rodElement); ok && re != nil {
		res, err = re.el.Context(ctx).Eval(script)
	} else {
		res, err = r.page.Context(ctx).Eval(script)
	}
	if err != nil {
		return nil, fmt.Errorf("execute script: %w", err)
	}
	return res.Value.Val(), nil
}

func (r *Rod) Screenshot(ctx context.Context) ([]byte, error) {
	return r.page.Context(ctx).Screenshot(false, nil)
}

func (r *Rod) Close() error {
	return r.browser.Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) HTML(ctx context.Context) (string, error) {
	return e.el.Context(ctx).HTML()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil || v == nil {
		return "", false, err
	}
	return *v, true, nil
}
