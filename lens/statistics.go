package lens

import (
	"fmt"
)

// Stat is a single pass / fail counter row of the report statistics.
type Stat struct {
	// Label is the display name, for example "Critical Tests", a tag, or a suite full name.
	Label string `json:"label"`
	Pass  int64  `json:"pass"`
	Fail  int64  `json:"fail"`
	// Doc, Info, Links, and Combined are only set for tag statistics.
	Doc      string `json:"doc,omitempty"`
	Info     string `json:"info,omitempty"`
	Links    string `json:"links,omitempty"`
	Combined string `json:"combined,omitempty"`
	// ID and Name are only set for suite statistics.
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Total returns the number of tests counted.
func (s Stat) Total() int64 {
	return s.Pass + s.Fail
}

// Statistics holds the report level counters: totals (critical and all tests), per tag, and per suite.
type Statistics struct {
	Total  []Stat
	Tags   []Stat
	Suites []Stat
}

// parseStatistics converts the three raw stat records of the payload.
func parseStatistics(raw [][]map[string]any) (*Statistics, error) {
	stats := &Statistics{}
	groups := []string{"total", "tag", "suite"}
	targets := []*[]Stat{&stats.Total, &stats.Tags, &stats.Suites}
	for i, target := range targets {
		if i >= len(raw) {
			break
		}
		rows := make([]Stat, len(raw[i]))
		for j, row := range raw[i] {
			var err error
			if rows[j], err = parseStat(row); err != nil {
				return nil, fmt.Errorf("%s statistics %d: %w", groups[i], j, err)
			}
		}
		*target = rows
	}
	return stats, nil
}

// parseStat reads one row, an absent counter is zero but a present one must be an integer.
func parseStat(row map[string]any) (Stat, error) {
	text := func(key string) string {
		switch v := row[key].(type) {
		case nil:
			return ""
		case string:
			return v
		default:
			return fmt.Sprint(v)
		}
	}
	count := func(key string) (int64, error) {
		v, ok := row[key]
		if !ok || v == nil {
			return 0, nil
		}
		n, ok := asRef(v)
		if !ok {
			return 0, fmt.Errorf("%w: %s count %v (%T) is not an integer", ErrShapeMismatch, key, v, v)
		}
		return n, nil
	}
	pass, err := count("pass")
	if err != nil {
		return Stat{}, err
	}
	fail, err := count("fail")
	if err != nil {
		return Stat{}, err
	}
	return Stat{
		Label:    text("label"),
		Pass:     pass,
		Fail:     fail,
		Doc:      text("doc"),
		Info:     text("info"),
		Links:    text("links"),
		Combined: text("combined"),
		ID:       text("id"),
		Name:     text("name"),
	}, nil
}
