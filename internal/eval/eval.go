// Package eval runs a question set through baseline and hybrid retrieval
// and compares the outcomes.
package eval

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	ragerr "github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/errors"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/qa"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/search"
)

// Question is one evaluation prompt.
type Question struct {
	// ID labels the question in reports.
	ID string `yaml:"id"`

	// Text is the question itself.
	Text string `yaml:"question"`

	// ExpectedSource optionally names the source the top context should
	// come from.
	ExpectedSource string `yaml:"expected_source,omitempty"`
}

// questionSet is the YAML file shape.
type questionSet struct {
	Questions []Question `yaml:"questions"`
}

// LoadQuestions reads an evaluation question set from a YAML file.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeFileNotFound, "failed to read question set", err).
			WithDetail("path", path)
	}

	var set questionSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, ragerr.New(ragerr.ErrCodeConfigInvalid, "question set is not valid YAML", err).
			WithDetail("path", path)
	}

	for i, q := range set.Questions {
		if q.Text == "" {
			return nil, ragerr.New(ragerr.ErrCodeConfigInvalid,
				fmt.Sprintf("question %d has no text", i), nil).
				WithDetail("path", path)
		}
		if q.ID == "" {
			set.Questions[i].ID = fmt.Sprintf("q%03d", i+1)
		}
	}

	return set.Questions, nil
}

// Outcome is what one retrieval mode produced for a question.
type Outcome struct {
	Answered    bool
	TopScore    float64
	TopChunkID  string
	TopSource   string
	ExpectedHit bool
}

// Result compares both modes for a single question.
type Result struct {
	Question Question
	Baseline Outcome
	Hybrid   Outcome

	// RankAgreement is true when both modes put the same chunk first.
	RankAgreement bool
}

// Summary aggregates a full run.
type Summary struct {
	Total            int
	BaselineAnswered int
	HybridAnswered   int
	Agreements       int
	BaselineHits     int
	HybridHits       int
}

// Runner executes question sets against the QA service.
type Runner struct {
	service *qa.Service
}

// NewRunner creates an evaluation runner.
func NewRunner(service *qa.Service) (*Runner, error) {
	if service == nil {
		return nil, fmt.Errorf("qa service is required")
	}
	return &Runner{service: service}, nil
}

// Run asks every question in both modes. A retrieval failure aborts the
// run; validation failures cannot occur for a loaded question set.
func (r *Runner) Run(ctx context.Context, questions []Question) ([]Result, error) {
	results := make([]Result, 0, len(questions))
	for _, q := range questions {
		baseline, err := r.ask(ctx, q, search.ModeBaseline)
		if err != nil {
			return nil, fmt.Errorf("question %s (baseline): %w", q.ID, err)
		}
		hybrid, err := r.ask(ctx, q, search.ModeHybrid)
		if err != nil {
			return nil, fmt.Errorf("question %s (hybrid): %w", q.ID, err)
		}

		results = append(results, Result{
			Question: q,
			Baseline: baseline,
			Hybrid:   hybrid,
			RankAgreement: baseline.TopChunkID != "" &&
				baseline.TopChunkID == hybrid.TopChunkID,
		})
	}
	return results, nil
}

func (r *Runner) ask(ctx context.Context, q Question, mode search.Mode) (Outcome, error) {
	resp, err := r.service.Ask(ctx, qa.Request{Question: q.Text, Mode: string(mode)})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Answered: resp.Answer != nil}
	if len(resp.Contexts) > 0 {
		top := resp.Contexts[0]
		out.TopScore = top.FusedScore
		out.TopChunkID = top.ChunkID
		out.TopSource = top.DocumentID
		out.ExpectedHit = q.ExpectedSource != "" && top.DocumentID == q.ExpectedSource
	}
	return out, nil
}

// Summarize aggregates results into run-level counts.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Baseline.Answered {
			s.BaselineAnswered++
		}
		if r.Hybrid.Answered {
			s.HybridAnswered++
		}
		if r.RankAgreement {
			s.Agreements++
		}
		if r.Baseline.ExpectedHit {
			s.BaselineHits++
		}
		if r.Hybrid.ExpectedHit {
			s.HybridHits++
		}
	}
	return s
}
