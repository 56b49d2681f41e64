package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/output"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/qa"
)

func newAskCmd() *cobra.Command {
	var topK int
	var mode string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against the ingested corpus",
		Long: `Ask retrieves the best-matching chunks, extracts a short answer with
citations, and prints it. With --mode baseline only dense retrieval
runs; the default hybrid mode blends dense and keyword scores.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())
			question := strings.Join(args, " ")

			cfg, err := loadConfig()
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

			resp, err := service.Ask(cmd.Context(), qa.Request{
				Question: question,
				TopK:     topK,
				Mode:     mode,
			})
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				out.Info(string(data))
				return nil
			}

			printAnswer(out, resp)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of contexts to retrieve (default from config)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Retrieval mode: hybrid or baseline (default: hybrid)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")

	return cmd
}

// printAnswer renders a QA response for the terminal.
func printAnswer(out *output.Writer, resp *qa.Response) {
	if resp.Answer != nil {
		out.Header("Answer")
		out.Info(*resp.Answer)
	} else {
		out.Warning("no answer: the retrieved evidence is too weak")
	}
	out.Newline()

	if len(resp.Contexts) == 0 {
		out.Info("no matching passages")
		return
	}

	out.Header("Contexts")
	rows := make([][]string, 0, len(resp.Contexts))
	for _, c := range resp.Contexts {
		snippet := c.Text
		if len(snippet) > 60 {
			snippet = snippet[:60] + "…"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", c.Rank),
			c.ChunkID,
			c.SourceTitle,
			fmt.Sprintf("%.4f", c.FusedScore),
			snippet,
		})
	}
	out.Table([]string{"rank", "chunk", "source", "score", "text"}, rows)

	out.Newline()
	out.Infof("mode: %s   reranker used: %t", resp.Mode, resp.RerankerUsed)
}
