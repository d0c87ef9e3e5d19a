package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteFilterNumeric(t *testing.T) {
	t.Parallel()

	sess := newSession(loadFixture(t))

	obs, err := sess.execute(Step{Op: "filter", Column: "salary", Operator: "gt", Value: "55000"})
	require.NoError(t, err)
	assert.Equal(t, `filter salary gt "55000" kept 3 of 5 rows`, obs)
	assert.Len(t, sess.view, 3)
}

func TestExecuteFilterString(t *testing.T) {
	t.Parallel()

	sess := newSession(loadFixture(t))

	obs, err := sess.execute(Step{Op: "filter", Column: "dept", Operator: "eq", Value: "sales"})
	require.NoError(t, err)
	assert.Contains(t, obs, "kept 3 of 5 rows")
}

func TestExecuteFilterContains(t *testing.T) {
	t.Parallel()

	sess := newSession(loadFixture(t))

	_, err := sess.execute(Step{Op: "filter", Column: "notes", Operator: "contains", Value: "LEAVE"})
	require.NoError(t, err)
	assert.Len(t, sess.view, 1, "contains matches case-insensitively")
}

func TestExecuteFiltersStack(t *testing.T) {
	t.Parallel()

	sess := newSession(loadFixture(t))

	_, err := sess.execute(Step{Op: "filter", Column: "dept", Operator: "eq", Value: "sales"})
	require.NoError(t, err)
	_, err = sess.execute(Step{Op: "filter", Column: "salary", Operator: "ge", Value: "55000"})
	require.NoError(t, err)
	assert.Len(t, sess.view, 2, "second filter narrows the first one's result")
}

func TestExecuteFilterRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		step Step
	}{
		{name: "unknown column", step: Step{Op: "filter", Column: "bonus", Operator: "eq", Value: "1"}},
		{name: "unknown operator", step: Step{Op: "filter", Column: "salary", Operator: "between", Value: "1"}},
		{name: "ordering on text column", step: Step{Op: "filter", Column: "dept", Operator: "gt", Value: "a"}},
		{name: "non-numeric value for numeric column", step: Step{Op: "filter", Column: "salary", Operator: "gt", Value: "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sess := newSession(loadFixture(t))
			_, err := sess.execute(tt.step)
			assert.Error(t, err)
			assert.Len(t, sess.view, 5, "rejected filter must not touch the view")
		})
	}
}

func TestExecuteAggregate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		step Step
		want string
	}{
		{name: "count", step: Step{Op: "aggregate", Func: "count"}, want: "count = 5"},
		{name: "sum", step: Step{Op: "aggregate", Func: "sum", Column: "salary"}, want: "sum(salary) over 5 rows = 340000"},
		{name: "avg", step: Step{Op: "aggregate", Func: "avg", Column: "salary"}, want: "avg(salary) over 5 rows = 68000"},
		{name: "min", step: Step{Op: "aggregate", Func: "min", Column: "salary"}, want: "min(salary) over 5 rows = 50000"},
		{name: "max", step: Step{Op: "aggregate", Func: "max", Column: "salary"}, want: "max(salary) over 5 rows = 90000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sess := newSession(loadFixture(t))
			obs, err := sess.execute(tt.step)
			require.NoError(t, err)
			assert.Equal(t, tt.want, obs)
		})
	}
}

func TestExecuteAggregateRejections(t *testing.T) {
	t.Parallel()

	sess := newSession(loadFixture(t))

	_, err := sess.execute(Step{Op: "aggregate", Func: "sum", Column: "dept"})
	assert.Error(t, err, "sum over a text column")

	_, err = sess.execute(Step{Op: "aggregate", Func: "median", Column: "salary"})
	assert.Error(t, err, "unsupported aggregate")
}

func TestExecuteGroup(t *testing.T) {
	t.Parallel()

	sess := newSession(loadFixture(t))

	obs, err := sess.execute(Step{Op: "group", By: "dept", Func: "count"})
	require.NoError(t, err)
	assert.Equal(t, "dept=eng: count = 2\ndept=sales: count = 3", obs, "groups render in sorted key order")

	obs, err = sess.execute(Step{Op: "group", By: "dept", Func: "avg", Column: "salary"})
	require.NoError(t, err)
	assert.Contains(t, obs, "dept=eng: avg(salary) over 2 rows = 87500")
	assert.Contains(t, obs, "dept=sales: avg(salary) over 3 rows = 55000")
}

func TestExecutePreview(t *testing.T) {
	t.Parallel()

	sess := newSession(loadFixture(t))

	obs, err := sess.execute(Step{Op: "preview", Limit: 2})
	require.NoError(t, err)
	assert.Contains(t, obs, "name,dept,salary,notes")
	assert.Contains(t, obs, "alice,sales,50000,")
	assert.Contains(t, obs, "(2 of 5 rows shown)")
	assert.NotContains(t, obs, "carol")
}

func TestExecuteUnsupportedOp(t *testing.T) {
	t.Parallel()

	sess := newSession(loadFixture(t))

	_, err := sess.execute(Step{Op: "exec", Value: "rm -rf /"})
	assert.Error(t, err)
}
