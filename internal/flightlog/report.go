package flightlog

import (
	"fmt"
	"slices"
	"strings"
)

const ResultCompleted = "Completed"

// ManeuverCount groups rows by maneuver, option and result.
type ManeuverCount struct {
	Maneuver string `json:"maneuver"`
	Option   string `json:"option"`
	Result   string `json:"result"`
	Count    int    `json:"count"`
}

// ErrorCount groups errored rows by error and maneuver.
type ErrorCount struct {
	Error    string `json:"error"`
	Maneuver string `json:"maneuver"`
	Count    int    `json:"count"`
}

// TopManeuvers counts attempts per (maneuver, option, result), ordered by key.
func TopManeuvers(rows []Row) []ManeuverCount {
	index := map[[3]string]int{}
	var out []ManeuverCount
	for _, r := range rows {
		key := [3]string{r.Maneuver, r.Option, r.Result}
		if i, ok := index[key]; ok {
			out[i].Count++
			continue
		}
		index[key] = len(out)
		out = append(out, ManeuverCount{Maneuver: r.Maneuver, Option: r.Option, Result: r.Result, Count: 1})
	}
	slices.SortFunc(out, func(a, b ManeuverCount) int {
		if c := strings.Compare(a.Maneuver, b.Maneuver); c != 0 {
			return c
		}
		if c := strings.Compare(a.Option, b.Option); c != 0 {
			return c
		}
		return strings.Compare(a.Result, b.Result)
	})
	return out
}

// TopErrors counts errored attempts per (error, maneuver), ordered by key.
func TopErrors(rows []Row) []ErrorCount {
	index := map[[2]string]int{}
	var out []ErrorCount
	for _, r := range rows {
		if r.Error == "" {
			continue
		}
		key := [2]string{r.Error, r.Maneuver}
		if i, ok := index[key]; ok {
			out[i].Count++
			continue
		}
		index[key] = len(out)
		out = append(out, ErrorCount{Error: r.Error, Maneuver: r.Maneuver, Count: 1})
	}
	slices.SortFunc(out, func(a, b ErrorCount) int {
		if c := strings.Compare(a.Error, b.Error); c != 0 {
			return c
		}
		return strings.Compare(a.Maneuver, b.Maneuver)
	})
	return out
}

// UnexpectedResultsError lists results other than Completed.
type UnexpectedResultsError struct {
	Results []string
}

func (e *UnexpectedResultsError) Error() string {
	return fmt.Sprintf("unexpected results: %s", strings.Join(e.Results, ", "))
}

// CheckResults returns an UnexpectedResultsError when any finished row has a
// result other than Completed.
func CheckResults(rows []Row) error {
	var unexpected []string
	for _, r := range rows {
		if r.Result == "" || r.Result == ResultCompleted {
			continue
		}
		if !slices.Contains(unexpected, r.Result) {
			unexpected = append(unexpected, r.Result)
		}
	}
	if len(unexpected) == 0 {
		return nil
	}
	return &UnexpectedResultsError{Results: unexpected}
}
