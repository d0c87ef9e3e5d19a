package tabular

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/frontdesk-labs/frontdesk/internal/log"
)

var (
	// ErrDatasetUnavailable is returned when no dataset loaded at
	// startup.
	ErrDatasetUnavailable = errors.New("tabular: dataset unavailable")

	// ErrReasoningLimit is returned when the loop exhausts its step
	// budget without producing an answer.
	ErrReasoningLimit = errors.New("tabular: reasoning limit reached")

	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("tabular: question is empty")

	// ErrUpstream is returned when a planner call fails at the model
	// provider.
	ErrUpstream = errors.New("tabular: planner call failed")
)

// maxSteps bounds the reasoning loop. Each model turn costs one step,
// including turns wasted on invalid operations.
const maxSteps = 6

const plannerSystem = `You are a data analyst answering one question about a single table.
Each turn, reply with exactly one JSON operation:
- {"op":"filter","column":C,"operator":"eq|ne|gt|lt|ge|le|contains","value":V} narrows the working rows
- {"op":"aggregate","func":"count|sum|avg|min|max","column":C} computes over the working rows (count needs no column)
- {"op":"group","by":C,"func":F,"column":C2} aggregates per distinct value of C
- {"op":"preview","limit":N} shows the first N working rows
- {"op":"answer","answer":TEXT} finishes with the final answer for the user
Filters stack; there is no undo. Use the observations you are given, never invented numbers.
State the final answer in plain language, including the key figure.`

// Agent plans sanctioned table operations with the model and executes
// them locally. One Agent serves all requests; per-question state
// lives in the session.
type Agent struct {
	g      *genkit.Genkit
	model  string
	table  *Table
	logger log.Logger
}

// NewAgent wires the agent. table may be nil when the dataset failed
// to load; every question then fails with ErrDatasetUnavailable.
func NewAgent(g *genkit.Genkit, model string, table *Table, logger log.Logger) *Agent {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Agent{g: g, model: model, table: table, logger: logger}
}

// Ready reports whether a dataset is loaded.
func (a *Agent) Ready() bool { return a.table != nil }

// Answer runs the bounded plan-execute loop for one question.
func (a *Agent) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	if a.table == nil {
		return "", ErrDatasetUnavailable
	}

	sess := newSession(a.table)
	var transcript []string

	for stepNum := 1; stepNum <= maxSteps; stepNum++ {
		step, err := a.plan(ctx, question, transcript, stepNum)
		if err != nil {
			return "", err
		}

		if step.Op == opAnswer {
			answer := strings.TrimSpace(step.Answer)
			if answer == "" {
				transcript = append(transcript, fmt.Sprintf("step %d: error: answer op with empty answer", stepNum))
				continue
			}
			a.logger.Debug("tabular answer produced", "steps", stepNum)
			return answer, nil
		}

		obs, execErr := sess.execute(step)
		if execErr != nil {
			obs = "error: " + execErr.Error()
		}
		transcript = append(transcript, fmt.Sprintf("step %d: %s -> %s", stepNum, describeStep(step), obs))
	}

	a.logger.Warn("tabular reasoning limit reached", "max_steps", maxSteps)
	return "", fmt.Errorf("%w after %d steps", ErrReasoningLimit, maxSteps)
}

// plan asks the model for the next operation.
func (a *Agent) plan(ctx context.Context, question string, transcript []string, stepNum int) (Step, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Table %q: %d rows.\nColumns: %s\n\n", a.table.Name(), a.table.RowCount(), a.table.Schema())
	if len(transcript) > 0 {
		b.WriteString("Previous steps:\n")
		for _, line := range transcript {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s\n", question)
	fmt.Fprintf(&b, "This is step %d of at most %d. Reply with the next single operation.", stepNum, maxSteps)

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.model),
		ai.WithSystem(plannerSystem),
		ai.WithPrompt(b.String()),
		ai.WithOutputType(Step{}),
	)
	if err != nil {
		return Step{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var step Step
	if err := resp.Output(&step); err != nil {
		return Step{}, fmt.Errorf("%w: malformed step: %v", ErrUpstream, err)
	}
	return step, nil
}

func describeStep(step Step) string {
	switch step.Op {
	case opFilter:
		return fmt.Sprintf("filter(%s %s %q)", step.Column, step.Operator, step.Value)
	case opAggregate:
		return fmt.Sprintf("aggregate(%s, %s)", step.Func, step.Column)
	case opGroup:
		return fmt.Sprintf("group(by=%s, %s(%s))", step.By, step.Func, step.Column)
	case opPreview:
		return "preview"
	default:
		return fmt.Sprintf("op=%q", step.Op)
	}
}
