// Package parse reads page source into a queryable document.
package parse

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	htmldom "golang.org/x/net/html"
)

// Document is parsed page source.
type Document struct {
	*goquery.Document
	BaseURL string
}

func New(source, baseURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{Document: doc, BaseURL: baseURL}, nil
}

type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Links returns every anchor with an href, resolved against the base URL.
func (d *Document) Links() []Link {
	var out []Link
	d.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		out = append(out, Link{Text: strings.TrimSpace(s.Text()), URL: Absolute(d.BaseURL, href)})
	})
	return out
}

// SelectAll returns the outer HTML of every match.
func (d *Document) SelectAll(selector string) []string {
	var items []string
	d.Find(selector).Each(func(_ int, s *goquery.Selection) {
		items = append(items, OuterHTML(s))
	})
	return items
}

func (d *Document) InnerText() string {
	return strings.TrimSpace(d.Text())
}

// Locate returns an absolute XPath for each element matching selector.
func (d *Document) Locate(selector string) []string {
	var out []string
	d.Find(selector).Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			out = append(out, XPath(n))
		}
	})
	return out
}

func OuterHTML(sel *goquery.Selection) string {
	var buf bytes.Buffer
	for _, n := range sel.Nodes {
		_ = htmldom.Render(&buf, n)
	}
	return buf.String()
}

// Absolute resolves href against base. Unparseable input is returned as is.
func Absolute(base, href string) string {
	u, err := url.Parse(href)
	if err != nil || href == "" {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}
	if base == "" {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	return bu.ResolveReference(u).String()
}

// XPath builds the absolute element path to n, with a 1-based index on
// every step that has same-named siblings.
func XPath(n *htmldom.Node) string {
	var steps []string
	for ; n != nil && n.Type == htmldom.ElementNode; n = n.Parent {
		step := n.Data
		index, count := 1, 0
		if n.Parent != nil {
			for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
				if sib.Type != htmldom.ElementNode || sib.Data != n.Data {
					continue
				}
				count++
				if sib == n {
					index = count
				}
			}
		}
		if count > 1 {
			step += "[" + strconv.Itoa(index) + "]"
		}
		steps = append(steps, step)
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return "/" + strings.Join(steps, "/")
}
