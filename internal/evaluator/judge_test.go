package evaluator

import (
	"context"
	"strings"
	"testing"

	"github.com/stellarlinkco/mltrack/internal/dataset"
	"github.com/stellarlinkco/mltrack/internal/llm"
)

type scriptedProvider struct {
	replies []string
	calls   int
	prompts []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req *llm.Request) (*llm.Response, error) {
	if len(req.Messages) != 1 {
		panic("scripted provider: want a single user message")
	}
	p.prompts = append(p.prompts, req.Messages[0].Content)
	reply := p.replies[p.calls%len(p.replies)]
	p.calls++
	return &llm.Response{Text: reply}, nil
}

func judgeDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		dataset.MustTable(
			dataset.Column{Name: "question", Values: []any{"What is Go?", "What is SQL?"}},
			dataset.Column{Name: "answer", Values: []any{"A programming language.", "Paris."}},
		),
		dataset.Options{
			Targets:     []string{"A programming language.", "A query language."},
			Predictions: "answer",
		},
	)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return ds
}

func TestJudgeEvaluator_CanEvaluate(t *testing.T) {
	t.Parallel()

	e := &JudgeEvaluator{Provider: &scriptedProvider{replies: []string{"{}"}}}
	if !e.CanEvaluate(ModelTypeQuestionAnswering, nil) || !e.CanEvaluate(ModelTypeText, nil) {
		t.Fatalf("CanEvaluate(text types): want true")
	}
	if e.CanEvaluate(ModelTypeClassifier, nil) || e.CanEvaluate(ModelTypeRegressor, nil) {
		t.Fatalf("CanEvaluate(tabular types): want false")
	}
}

func TestJudgeEvaluator_Scores(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{replies: []string{
		`{"score": 5, "reasoning": "correct and complete"}`,
		`{"score": 1, "reasoning": "wrong answer"}`,
	}}
	e := &JudgeEvaluator{Provider: provider}

	res, err := e.Evaluate(context.Background(), &Input{
		ModelType: ModelTypeQuestionAnswering,
		Dataset:   judgeDataset(t),
		Config:    Config{"criteria": "Answer must be factually correct."},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("llm calls: got %d want 2", provider.calls)
	}
	if got := res.Metrics["judge_mean_score"]; got != 0.5 {
		t.Fatalf("judge_mean_score: got %v want 0.5", got)
	}
	if got := res.Metrics["judge_pass_rate"]; got != 0.5 {
		t.Fatalf("judge_pass_rate: got %v want 0.5", got)
	}
	if !strings.Contains(provider.prompts[0], "What is Go?") {
		t.Fatalf("prompt missing question context: %q", provider.prompts[0])
	}
	if !strings.Contains(provider.prompts[0], "Answer must be factually correct.") {
		t.Fatalf("prompt missing criteria: %q", provider.prompts[0])
	}
	table, ok := res.Tables["eval_results_table"]
	if !ok {
		t.Fatalf("missing eval_results_table")
	}
	if _, ok := table.Column("judge_reasoning"); !ok {
		t.Fatalf("missing judge_reasoning column")
	}
}

func TestJudgeEvaluator_MissingCriteria(t *testing.T) {
	t.Parallel()

	e := &JudgeEvaluator{Provider: &scriptedProvider{replies: []string{"{}"}}}
	_, err := e.Evaluate(context.Background(), &Input{
		ModelType: ModelTypeText,
		Dataset:   judgeDataset(t),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "missing criteria") {
		t.Fatalf("error: %v", err)
	}
}

func TestJudgeEvaluator_MalformedOutput(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{replies: []string{"not json at all"}}
	e := &JudgeEvaluator{Provider: provider}

	res, err := e.Evaluate(context.Background(), &Input{
		ModelType: ModelTypeText,
		Dataset:   judgeDataset(t),
		Config:    Config{"criteria": "anything"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := res.Metrics["judge_mean_score"]; got != 0 {
		t.Fatalf("judge_mean_score: got %v want 0", got)
	}
}

func TestJudgeEvaluator_NoProvider(t *testing.T) {
	t.Parallel()

	e := &JudgeEvaluator{}
	_, err := e.Evaluate(context.Background(), &Input{
		ModelType: ModelTypeText,
		Dataset:   judgeDataset(t),
		Config:    Config{"criteria": "anything"},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}
