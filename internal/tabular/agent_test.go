package tabular

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-labs/frontdesk/internal/testutil"
)

// Scripted turns key on the "This is step N" marker in the planner
// prompt. Later steps register first because earlier markers reappear
// in the transcript.
func newAgentFixture(t *testing.T, fallback string) (*Agent, *testutil.MockLLM) {
	t.Helper()

	g := testutil.NewGenkit(t)
	llm := testutil.NewMockLLM(fallback)
	llm.RegisterModel(g)

	table, err := LoadCSV(writeCSV(t, employeesCSV))
	require.NoError(t, err)
	return NewAgent(g, "mock/test-model", table, nil), llm
}

func TestAgentAnswersAfterFilter(t *testing.T) {
	agent, llm := newAgentFixture(t, `{"op":"preview","limit":1}`)
	llm.AddResponse("this is step 2", `{"op":"answer","answer":"3 employees work in sales."}`)
	llm.AddResponse("this is step 1", `{"op":"filter","column":"dept","operator":"eq","value":"sales"}`)

	answer, err := agent.Answer(context.Background(), "How many employees work in sales?")
	require.NoError(t, err)
	assert.Equal(t, "3 employees work in sales.", answer)

	calls := llm.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].UserMessage, "Columns: name (text), dept (text), salary (number)")
	assert.Contains(t, calls[1].UserMessage, "kept 3 of 5 rows", "observation feeds the next turn")
}

func TestAgentRecoversFromInvalidStep(t *testing.T) {
	agent, llm := newAgentFixture(t, `{"op":"preview","limit":1}`)
	llm.AddResponse("this is step 2", `{"op":"answer","answer":"There are 5 rows."}`)
	llm.AddResponse("this is step 1", `{"op":"drop","column":"salary"}`)

	answer, err := agent.Answer(context.Background(), "How many rows are there?")
	require.NoError(t, err)
	assert.Equal(t, "There are 5 rows.", answer)

	calls := llm.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].UserMessage, `unsupported op "drop"`, "rejection is reported, not fatal")
}

func TestAgentRetriesEmptyAnswer(t *testing.T) {
	agent, llm := newAgentFixture(t, `{"op":"preview","limit":1}`)
	llm.AddResponse("this is step 2", `{"op":"answer","answer":"Average salary is 68000."}`)
	llm.AddResponse("this is step 1", `{"op":"answer","answer":"  "}`)

	answer, err := agent.Answer(context.Background(), "average salary?")
	require.NoError(t, err)
	assert.Equal(t, "Average salary is 68000.", answer)
}

func TestAgentReasoningLimit(t *testing.T) {
	// The fallback never answers, so the loop must stop on its own.
	agent, llm := newAgentFixture(t, `{"op":"preview","limit":1}`)

	_, err := agent.Answer(context.Background(), "loop forever please")
	assert.ErrorIs(t, err, ErrReasoningLimit)
	assert.Len(t, llm.Calls(), maxSteps)
}

func TestAgentDatasetUnavailable(t *testing.T) {
	g := testutil.NewGenkit(t)
	agent := NewAgent(g, "mock/test-model", nil, nil)
	assert.False(t, agent.Ready())

	_, err := agent.Answer(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrDatasetUnavailable)
}

func TestAgentEmptyQuestion(t *testing.T) {
	agent, _ := newAgentFixture(t, `{"op":"preview","limit":1}`)

	_, err := agent.Answer(context.Background(), " \t ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAgentUpstreamFailure(t *testing.T) {
	agent, llm := newAgentFixture(t, `{"op":"preview","limit":1}`)
	llm.SetError(errors.New("deadline exceeded"))

	_, err := agent.Answer(context.Background(), "sum of salaries?")
	assert.ErrorIs(t, err, ErrUpstream)
}
