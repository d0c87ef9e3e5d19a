package tabular

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Step is one planned operation. The model emits exactly one per turn;
// anything outside this shape is rejected at execution.
type Step struct {
	Op       string `json:"op"`
	Column   string `json:"column,omitempty"`
	Operator string `json:"operator,omitempty"`
	Value    string `json:"value,omitempty"`
	Func     string `json:"func,omitempty"`
	By       string `json:"by,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

const (
	opFilter    = "filter"
	opAggregate = "aggregate"
	opGroup     = "group"
	opPreview   = "preview"
	opAnswer    = "answer"
)

const previewMaxRows = 10

// session tracks the working row subset across one question. Filters
// narrow it progressively; the table itself is never mutated.
type session struct {
	table *Table
	view  []int
}

func newSession(t *Table) *session {
	view := make([]int, len(t.rows))
	for i := range view {
		view[i] = i
	}
	return &session{table: t, view: view}
}

// execute runs one sanctioned operation and returns the observation
// text fed back to the planner. Invalid steps return an error; the
// caller decides whether to surface or feed it back.
func (s *session) execute(step Step) (string, error) {
	switch step.Op {
	case opFilter:
		return s.filter(step)
	case opAggregate:
		return s.aggregate(step.Func, step.Column, s.view)
	case opGroup:
		return s.group(step)
	case opPreview:
		return s.preview(step.Limit), nil
	default:
		return "", fmt.Errorf("unsupported op %q", step.Op)
	}
}

func (s *session) filter(step Step) (string, error) {
	col, err := s.table.colIndex(step.Column)
	if err != nil {
		return "", err
	}

	numeric := s.table.kinds[col] == KindNumber
	var target float64
	switch step.Operator {
	case "eq", "ne", "contains":
	case "gt", "lt", "ge", "le":
		if !numeric {
			return "", fmt.Errorf("operator %q needs a numeric column, %q holds text", step.Operator, step.Column)
		}
	default:
		return "", fmt.Errorf("unsupported operator %q", step.Operator)
	}
	if numeric && step.Operator != "contains" {
		target, err = strconv.ParseFloat(strings.TrimSpace(step.Value), 64)
		if err != nil {
			return "", fmt.Errorf("value %q is not numeric", step.Value)
		}
	}

	var kept []int
	for _, row := range s.view {
		cell := s.table.rows[row][col]
		var match bool
		switch {
		case step.Operator == "contains":
			match = strings.Contains(strings.ToLower(cell), strings.ToLower(step.Value))
		case numeric:
			val, parseErr := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if parseErr != nil {
				continue
			}
			switch step.Operator {
			case "eq":
				match = val == target
			case "ne":
				match = val != target
			case "gt":
				match = val > target
			case "lt":
				match = val < target
			case "ge":
				match = val >= target
			case "le":
				match = val <= target
			}
		case step.Operator == "eq":
			match = cell == step.Value
		case step.Operator == "ne":
			match = cell != step.Value
		}
		if match {
			kept = append(kept, row)
		}
	}
	s.view = kept
	return fmt.Sprintf("filter %s %s %q kept %d of %d rows", step.Column, step.Operator, step.Value, len(kept), s.table.RowCount()), nil
}

func (s *session) aggregate(fn, column string, view []int) (string, error) {
	if fn == "count" {
		return fmt.Sprintf("count = %d", len(view)), nil
	}

	col, err := s.table.colIndex(column)
	if err != nil {
		return "", err
	}
	if s.table.kinds[col] != KindNumber {
		return "", fmt.Errorf("%s needs a numeric column, %q holds text", fn, column)
	}

	var (
		sum      float64
		min, max float64
		n        int
	)
	for _, row := range view {
		cell := strings.TrimSpace(s.table.rows[row][col])
		if cell == "" {
			continue
		}
		val, parseErr := strconv.ParseFloat(cell, 64)
		if parseErr != nil {
			continue
		}
		if n == 0 {
			min, max = val, val
		} else {
			if val < min {
				min = val
			}
			if val > max {
				max = val
			}
		}
		sum += val
		n++
	}
	if n == 0 {
		return fmt.Sprintf("%s(%s) has no numeric values in the current %d rows", fn, column, len(view)), nil
	}

	var result float64
	switch fn {
	case "sum":
		result = sum
	case "avg":
		result = sum / float64(n)
	case "min":
		result = min
	case "max":
		result = max
	default:
		return "", fmt.Errorf("unsupported aggregate %q", fn)
	}
	return fmt.Sprintf("%s(%s) over %d rows = %s", fn, column, n, formatNumber(result)), nil
}

func (s *session) group(step Step) (string, error) {
	by, err := s.table.colIndex(step.By)
	if err != nil {
		return "", err
	}

	groups := make(map[string][]int)
	for _, row := range s.view {
		key := s.table.rows[row][by]
		groups[key] = append(groups[key], row)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(groups))
	for _, key := range keys {
		obs, aggErr := s.aggregate(step.Func, step.Column, groups[key])
		if aggErr != nil {
			return "", aggErr
		}
		lines = append(lines, fmt.Sprintf("%s=%s: %s", step.By, key, obs))
	}
	if len(lines) == 0 {
		return "no rows to group", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (s *session) preview(limit int) string {
	if limit < 1 || limit > previewMaxRows {
		limit = 5
	}
	if limit > len(s.view) {
		limit = len(s.view)
	}

	var b strings.Builder
	b.WriteString(strings.Join(s.table.columns, ","))
	for _, row := range s.view[:limit] {
		b.WriteString("\n")
		b.WriteString(strings.Join(s.table.rows[row], ","))
	}
	fmt.Fprintf(&b, "\n(%d of %d rows shown)", limit, len(s.view))
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
