package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/eval"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/output"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/qa"
)

func newEvalCmd() *cobra.Command {
	var questionsPath string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Compare baseline and hybrid retrieval on a question set",
		Long: `Eval runs every question in the set through both retrieval modes
and reports answer rates, expected-source hits, and how often the two
modes agree on the top-ranked chunk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			questions, err := eval.LoadQuestions(questionsPath)
			if err != nil {
				return err
			}

			stack, err := openStack(cfg)
			if err != nil {
				return err
			}
			defer stack.Close()

			service, err := qa.NewService(stack.engine, qa.Config{
				DefaultTopK: cfg.Search.DefaultTopK,
				MaxTopK:     cfg.Search.MaxTopK,
				Answer:      answerConfig(cfg),
			})
			if err != nil {
				return err
			}

			runner, err := eval.NewRunner(service)
			if err != nil {
				return err
			}

			results, err := runner.Run(cmd.Context(), questions)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					r.Question.ID,
					evalCell(r.Baseline),
					evalCell(r.Hybrid),
					fmt.Sprintf("%t", r.RankAgreement),
				})
			}
			out.Table([]string{"question", "baseline", "hybrid", "agree"}, rows)
			out.Newline()

			s := eval.Summarize(results)
			out.Header("Summary")
			out.KeyValue("Questions", fmt.Sprintf("%d", s.Total))
			out.KeyValue("Baseline answered", fmt.Sprintf("%d", s.BaselineAnswered))
			out.KeyValue("Hybrid answered", fmt.Sprintf("%d", s.HybridAnswered))
			out.KeyValue("Baseline hits", fmt.Sprintf("%d", s.BaselineHits))
			out.KeyValue("Hybrid hits", fmt.Sprintf("%d", s.HybridHits))
			out.KeyValue("Rank agreement", fmt.Sprintf("%d/%d", s.Agreements, s.Total))
			return nil
		},
	}

	cmd.Flags().StringVarP(&questionsPath, "questions", "q", "data/questions.yaml", "Path to the question set")

	return cmd
}

// evalCell renders one mode outcome as a compact table cell.
func evalCell(o eval.Outcome) string {
	status := "abstain"
	if o.Answered {
		status = "answer"
	}
	hit := " "
	if o.ExpectedHit {
		hit = "*"
	}
	return fmt.Sprintf("%s %.3f%s", status, o.TopScore, hit)
}
