// Package browser is the page automation boundary used by pilots.
package browser

import (
	"context"
	"time"
)

// Query locates an element by XPath or CSS selector. XPath wins when both
// are set.
type Query struct {
	XPath    string `json:"xpath,omitempty" yaml:"xpath,omitempty"`
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
}

func XPath(expr string) Query   { return Query{XPath: expr} }
func Selector(css string) Query { return Query{Selector: css} }
func (q Query) IsZero() bool    { return q.XPath == "" && q.Selector == "" }

func (q Query) String() string {
	if q.XPath != "" {
		return q.XPath
	}
	return q.Selector
}

type Element interface {
	Click(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
}

// Browser drives a single page. Locate returns a nil Element and a nil
// error when nothing matched before the timeout.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Locate(ctx context.Context, q Query, timeout time.Duration) (Element, error)
	CurrentSource(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	// Execute runs a JavaScript function expression. With a non-nil
	// element the function is bound to it as this.
	Execute(ctx context.Context, script string, el Element) (any, error)
	// Screenshot returns nil when the page cannot be captured.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}
