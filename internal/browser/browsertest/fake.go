// Package browsertest provides an in-memory browser for tests.
package browsertest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xyla-io/raspador/internal/browser"
	"github.com/xyla-io/raspador/internal/parse"
)

// Page is what the fake serves for one URL.
type Page struct {
	Source string
	// Links maps a query string to the URL a click on it navigates to.
	Links map[string]string
}

// Browser serves canned pages. Queries are answered from the page source:
// selectors with goquery, XPaths by comparing against parse.XPath.
type Browser struct {
	mu         sync.Mutex
	Pages      map[string]Page
	URL        string
	PNG        []byte
	ExecResult any
	ExecErr    error
	Navigated  []string
	Executed   []string
	Clicked    []string
	Closed     bool
}

func New(pages map[string]Page) *Browser {
	return &Browser{Pages: pages, PNG: []byte("\x89PNG")}
}

func (b *Browser) Navigate(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.Pages[url]; !ok {
		return errors.New("no page at " + url)
	}
	b.URL = url
	b.Navigated = append(b.Navigated, url)
	return nil
}

func (b *Browser) Locate(_ context.Context, q browser.Query, _ time.Duration) (browser.Element, error) {
	b.mu.Lock()
	page := b.Pages[b.URL]
	b.mu.Unlock()
	doc, err := parse.New(page.Source, b.URL)
	if err != nil {
		return nil, err
	}
	if q.XPath != "" {
		for _, x := range doc.Locate("*") {
			if x == q.XPath {
				return &element{b: b, q: q, html: x}, nil
			}
		}
		return nil, nil
	}
	sel := doc.Find(q.Selector).First()
	if sel.Length() == 0 {
		return nil, nil
	}
	return &element{b: b, q: q, text: sel.Text(), html: parse.OuterHTML(sel), attrs: sel}, nil
}

func (b *Browser) CurrentSource(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Pages[b.URL].Source, nil
}

func (b *Browser) CurrentURL(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.URL, nil
}

func (b *Browser) Execute(_ context.Context, script string, _ browser.Element) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Executed = append(b.Executed, script)
	return b.ExecResult, b.ExecErr
}

func (b *Browser) Screenshot(context.Context) ([]byte, error) {
	return b.PNG, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	return nil
}

type element struct {
	b     *Browser
	q     browser.Query
	text  string
	html  string
	attrs interface{ Attr(string) (string, bool) }
}

func (e *element) Click(context.Context) error {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	e.b.Clicked = append(e.b.Clicked, e.q.String())
	if next, ok := e.b.Pages[e.b.URL].Links[e.q.String()]; ok {
		e.b.URL = next
		e.b.Navigated = append(e.b.Navigated, next)
	}
	return nil
}

func (e *element) Text(context.Context) (string, error) { return e.text, nil }
func (e *element) HTML(context.Context) (string, error) { return e.html, nil }

func (e *element) Attribute(_ context.Context, name string) (string, bool, error) {
	if e.attrs == nil {
		return "", false, nil
	}
	v, ok := e.attrs.Attr(name)
	return v, ok, nil
}
