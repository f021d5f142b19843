package evaluator

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/stellarlinkco/mltrack/internal/dataset"
	"github.com/stellarlinkco/mltrack/internal/evalerr"
	"github.com/stellarlinkco/mltrack/internal/llm"
)

// JudgeEvaluator scores free-text outputs with an LLM provider, one call per
// row. It declares capability for the text model types only, so the resolver
// never routes tabular classifier or regressor runs to it.
type JudgeEvaluator struct {
	Provider llm.Provider
}

func (*JudgeEvaluator) CanEvaluate(modelType string, _ Config) bool {
	return modelType == ModelTypeQuestionAnswering || modelType == ModelTypeText
}

const judgePromptTemplate = `You are an expert evaluator. Assess the AI response based on the given criteria.

## Evaluation Criteria
{{.Criteria}}

{{if .Rubric}}
## Scoring Dimensions
{{range .Rubric}}- {{.}}
{{end}}
{{end}}

{{if .Question}}
## Original Question/Context
{{.Question}}
{{end}}

{{if .Target}}
## Reference Answer
{{.Target}}
{{end}}

## AI Response to Evaluate
{{.Response}}

## Instructions
Rate the response on a scale of 1-{{.ScoreScale}}.
- 1: Completely fails to meet criteria
- {{.ScoreScale}}: Perfectly meets all criteria

Output ONLY valid JSON in this exact format:
{"score": <integer 1-{{.ScoreScale}}>, "reasoning": "<brief explanation>"}`

var judgePromptTmpl = template.Must(template.New("judge").Parse(judgePromptTemplate))

type judgePromptData struct {
	Criteria   string
	Rubric     []string
	Question   string
	Target     string
	Response   string
	ScoreScale int
}

type judgeOutput struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

func (e *JudgeEvaluator) Evaluate(ctx context.Context, in *Input) (*Result, error) {
	if e == nil || e.Provider == nil {
		return nil, evalerr.New(evalerr.KindDependencyMissing, "evaluator: judge: no llm provider configured")
	}

	predictions, err := resolvePredictions(ctx, in)
	if err != nil {
		return nil, err
	}

	criteria, rubric, scale, threshold, err := judgeSettings(in.Config)
	if err != nil {
		return nil, err
	}

	var targets []any
	if in.Dataset != nil && in.Dataset.HasTargets() {
		targets = in.Dataset.Labels()
	}
	questions := judgeQuestions(in.Dataset)

	scores := make([]any, len(predictions))
	reasons := make([]any, len(predictions))
	var sum float64
	passed := 0
	for i, pred := range predictions {
		data := judgePromptData{
			Criteria:   criteria,
			Rubric:     rubric,
			Response:   fmt.Sprintf("%v", pred),
			ScoreScale: scale,
		}
		if i < len(questions) {
			data.Question = questions[i]
		}
		if targets != nil && i < len(targets) {
			data.Target = fmt.Sprintf("%v", targets[i])
		}

		score, reasoning, err := e.judgeOne(ctx, data)
		if err != nil {
			return nil, err
		}
		scores[i] = score
		reasons[i] = reasoning
		sum += score
		if score >= threshold {
			passed++
		}
	}

	res := NewResult()
	if len(predictions) > 0 {
		res.Metrics["judge_mean_score"] = sum / float64(len(predictions))
		res.Metrics["judge_pass_rate"] = float64(passed) / float64(len(predictions))
	}
	res.Tables["eval_results_table"] = judgeTable(targets, predictions, scores, reasons)
	if err := applyExtras(res, in, targets, predictions); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *JudgeEvaluator) judgeOne(ctx context.Context, data judgePromptData) (float64, string, error) {
	var buf bytes.Buffer
	if err := judgePromptTmpl.Execute(&buf, data); err != nil {
		return 0, "", evalerr.Wrap(evalerr.KindEvaluatorFailure, err, "evaluator: judge: render prompt")
	}

	resp, err := e.Provider.Complete(ctx, &llm.Request{
		Messages:  []llm.Message{{Role: "user", Content: buf.String()}},
		MaxTokens: 512,
	})
	if err != nil {
		return 0, "", evalerr.Wrap(evalerr.KindEvaluatorFailure, err, "evaluator: judge: llm")
	}
	if resp == nil {
		return 0, "", evalerr.New(evalerr.KindEvaluatorFailure, "evaluator: judge: nil llm response")
	}

	raw := strings.TrimSpace(resp.Text)
	var out judgeOutput
	if err := llm.ParseJSON(raw, &out); err != nil {
		return 0, "invalid judge output", nil
	}
	if out.Score < 1 || out.Score > data.ScoreScale {
		return 0, "judge score out of range", nil
	}

	reasoning := strings.TrimSpace(out.Reasoning)
	if reasoning == "" {
		reasoning = "no reasoning provided"
	}
	return normalizeLikert(out.Score, data.ScoreScale), reasoning, nil
}

func judgeSettings(cfg Config) (criteria string, rubric []string, scale int, threshold float64, err error) {
	scale = 5
	threshold = 0.6

	if cfg == nil {
		return "", nil, 0, 0, evalerr.New(evalerr.KindInvalidArgument, "evaluator: judge: missing criteria")
	}
	if s, ok := cfg["criteria"].(string); ok {
		criteria = strings.TrimSpace(s)
	}
	if criteria == "" {
		return "", nil, 0, 0, evalerr.New(evalerr.KindInvalidArgument, "evaluator: judge: missing criteria")
	}
	if raw, ok := cfg["rubric"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return "", nil, 0, 0, evalerr.New(evalerr.KindInvalidArgument,
				"evaluator: judge: rubric must be a list, got %T", raw)
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return "", nil, 0, 0, evalerr.New(evalerr.KindInvalidArgument,
					"evaluator: judge: rubric entries must be strings, got %T", item)
			}
			rubric = append(rubric, s)
		}
	}
	if raw, ok := cfg["score_scale"]; ok {
		f, ok := asFloat(raw)
		if !ok {
			return "", nil, 0, 0, evalerr.New(evalerr.KindInvalidArgument,
				"evaluator: judge: score_scale must be a number, got %T", raw)
		}
		scale = int(f)
	}
	if scale < 2 {
		scale = 2
	}
	if raw, ok := cfg["score_threshold"]; ok {
		f, ok := asFloat(raw)
		if !ok {
			return "", nil, 0, 0, evalerr.New(evalerr.KindInvalidArgument,
				"evaluator: judge: score_threshold must be a number, got %T", raw)
		}
		threshold = f
	}
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	return criteria, rubric, scale, threshold, nil
}

// judgeQuestions renders the first feature column as per-row context.
func judgeQuestions(ds *dataset.Dataset) []string {
	if ds == nil {
		return nil
	}
	features := ds.Features()
	if features == nil || features.NumCols() == 0 {
		return nil
	}
	vals, _ := features.Column(features.ColumnNames()[0])
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = fmt.Sprintf("%v", v)
	}
	return out
}

func judgeTable(targets, predictions, scores, reasons []any) *dataset.Table {
	cols := make([]dataset.Column, 0, 4)
	if targets != nil {
		cols = append(cols, dataset.Column{Name: "targets", Values: targets})
	}
	cols = append(cols,
		dataset.Column{Name: "outputs", Values: predictions},
		dataset.Column{Name: "judge_score", Values: scores},
		dataset.Column{Name: "judge_reasoning", Values: reasons},
	)
	return dataset.MustTable(cols...)
}

func normalizeLikert(score int, scale int) float64 {
	if scale <= 1 || score <= 1 {
		return 0
	}
	if score >= scale {
		return 1
	}
	return float64(score-1) / float64(scale-1)
}
