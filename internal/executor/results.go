package executor

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/xyla-io/raspador/internal/flight"
)

var resultsRef = regexp.MustCompile(`@results\.([A-Za-z0-9_\-]+)\.([A-Za-z0-9_]+)`)

// Results holds the outputs of completed actions by action id for
// @results.<id>.<key> placeholders. It is safe for concurrent use.
type Results struct {
	mu   sync.Mutex
	byID map[string]*flight.Ordnance[map[string]any]
}

func NewResults() *Results {
	return &Results{byID: map[string]*flight.Ordnance[map[string]any]{}}
}

// Store replaces the outputs of id. A nil output leaves id empty.
func (r *Results) Store(id string, output map[string]any) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		o = flight.NewOrdnance[map[string]any]()
		r.byID[id] = o
	}
	o.Load(output)
}

// Lookup returns one output of id without consuming it.
func (r *Results) Lookup(id, key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok || !o.Loaded() {
		return nil, false
	}
	v, ok := o.Peek()[key]
	return v, ok
}

// Resolve returns a copy of payload with placeholders in every string
// replaced. Unknown ids and keys resolve to "".
func (r *Results) Resolve(payload map[string]any) map[string]any {
	resolved, _ := r.resolve(payload).(map[string]any)
	return resolved
}

func (r *Results) resolve(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = r.resolve(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = r.resolve(val)
		}
		return out
	case string:
		return resultsRef.ReplaceAllStringFunc(t, func(match string) string {
			sub := resultsRef.FindStringSubmatch(match)
			if v, ok := r.Lookup(sub[1], sub[2]); ok {
				return fmt.Sprintf("%v", v)
			}
			return ""
		})
	default:
		return v
	}
}
