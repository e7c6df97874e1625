package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var resultsRefRe = regexp.MustCompile(`@results\.([A-Za-z0-9_\-]+)\.`)

// Every @results.<id> reference points only to ids produced by prior stages.
func checkNoIntraStageRefs(v any, seen map[string]struct{}, stageIdx int, actID string) error {
	switch t := v.(type) {
	case map[string]any:
		for _, vv := range t {
			if err := checkNoIntraStageRefs(vv, seen, stageIdx, actID); err != nil {
				return err
			}
		}
	case []any:
		for _, vv := range t {
			if err := checkNoIntraStageRefs(vv, seen, stageIdx, actID); err != nil {
				return err
			}
		}
	case string:
		for _, m := range resultsRefRe.FindAllStringSubmatch(t, -1) {
			if _, ok := seen[m[1]]; !ok {
				return fmt.Errorf(
					"stage %d action '%s' references @results.%s, which is not available yet (same or later stage). Move this action to a later stage",
					stageIdx+1, actID, m[1],
				)
			}
		}
	}
	return nil
}

func validateStageDependencies(p *Plan) error {
	seen := map[string]struct{}{}
	for si, stage := range p.Stages {
		for _, act := range stage.Actions {
			if err := checkNoIntraStageRefs(act.Payload, seen, si, act.ID); err != nil {
				return err
			}
		}
		for _, act := range stage.Actions {
			if act.ID != "" {
				seen[act.ID] = struct{}{}
			}
		}
	}
	return nil
}

/*
LoadFile loads one or many plans from a JSON file and always returns a
slice. Accepted shapes:

 1. {"plans": [ {"name": "alpha", "plan": [stages...]}, {"plan": [...]}, [stages...] ]}
 2. [ {"name": "alpha", "plan": [...]}, {"plan": [...]}, [stages...] ]
 3. {"plan": [...]} or a bare array of stages, as a single plan

Unnamed plans are named "<file>#<index>", or "<file>" for a single plan.
*/
func LoadFile(path string) ([]NamedPlan, error) {
	clean := filepath.Clean(path)
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read plans %s: %w", clean, err)
	}
	plans, err := Parse(data, strings.TrimSuffix(filepath.Base(clean), filepath.Ext(clean)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", clean, err)
	}
	return plans, nil
}

// Parse reads plans from data; base names unnamed plans.
func Parse(data []byte, base string) ([]NamedPlan, error) {
	var obj struct {
		Plans []json.RawMessage `json:"plans"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj.Plans) > 0 {
		return parsePlanList(obj.Plans, base)
	}

	// A bare array is either a list of plans or the stages of one plan.
	if np, ok := parseStages(data); ok {
		np.Name = base
		return []NamedPlan{np}, nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return parsePlanList(arr, base)
	}

	if np, ok := parseOneNamedPlan(data); ok {
		if np.Name == "" {
			np.Name = base
		}
		return []NamedPlan{np}, nil
	}
	return nil, fmt.Errorf("unrecognized plans format")
}

func parsePlanList(items []json.RawMessage, base string) ([]NamedPlan, error) {
	var out []NamedPlan
	for i, raw := range items {
		np, ok := parseOneNamedPlan(raw)
		if !ok {
			np, ok = parseStages(raw)
		}
		if !ok {
			return nil, fmt.Errorf("could not parse plan #%d", i+1)
		}
		if np.Name == "" {
			np.Name = fmt.Sprintf("%s#%d", base, i+1)
		}
		out = append(out, np)
	}
	return out, nil
}

// parseOneNamedPlan reads {"name": "...", "plan": [...]}; the name is optional.
func parseOneNamedPlan(raw json.RawMessage) (NamedPlan, bool) {
	var wrap struct {
		Name string  `json:"name"`
		Plan []Stage `json:"plan"`
	}
	if err := json.Unmarshal(raw, &wrap); err != nil || len(wrap.Plan) == 0 {
		return NamedPlan{}, false
	}
	return NamedPlan{Name: strings.TrimSpace(wrap.Name), Plan: &Plan{Stages: wrap.Plan}}, true
}

// parseStages reads a bare array of stages. Each stage must list actions.
func parseStages(raw json.RawMessage) (NamedPlan, bool) {
	var stages []Stage
	if err := json.Unmarshal(raw, &stages); err != nil || len(stages) == 0 {
		return NamedPlan{}, false
	}
	for _, s := range stages {
		if len(s.Actions) == 0 {
			return NamedPlan{}, false
		}
	}
	return NamedPlan{Plan: &Plan{Stages: stages}}, true
}

// SelectByNames returns the plans matching names, case-insensitively and in
// the order asked, plus the names that matched nothing. No names selects all.
func SelectByNames(plans []NamedPlan, names []string) ([]NamedPlan, []string) {
	if len(names) == 0 {
		return plans, nil
	}
	var selected []NamedPlan
	var missing []string
	for _, want := range names {
		w := strings.TrimSpace(want)
		if w == "" {
			continue
		}
		found := false
		for i := range plans {
			if strings.EqualFold(plans[i].Name, w) {
				selected = append(selected, plans[i])
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return selected, missing
}
