package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/output"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/store"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/telemetry"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index statistics and ingested sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			stack, err := openStack(cfg)
			if err != nil {
				return err
			}
			defer stack.Close()

			chunkCount, err := stack.chunks.CountChunks(ctx)
			if err != nil {
				return err
			}
			sources, err := stack.chunks.ListSources(ctx)
			if err != nil {
				return err
			}
			ingestedAt, err := stack.chunks.GetState(ctx, store.StateKeyIngestedAt)
			if err != nil {
				return err
			}
			if ingestedAt == "" {
				ingestedAt = "never"
			}

			out.Header("Index")
			out.KeyValue("Data directory", cfg.Paths.DataDir)
			out.KeyValue("Sources", fmt.Sprintf("%d", len(sources)))
			out.KeyValue("Chunks", fmt.Sprintf("%d", chunkCount))
			if stats := stack.engine.Stats(); stats != nil {
				out.KeyValue("Vectors", fmt.Sprintf("%d", stats.VectorCount))
				if stats.LexicalStats != nil {
					out.KeyValue("Lexical documents", fmt.Sprintf("%d", stats.LexicalStats.DocumentCount))
				}
			}
			out.KeyValue("Last ingest", ingestedAt)

			printTelemetry(out, cfg.Paths.DataDir)

			if len(sources) == 0 {
				return nil
			}

			out.Newline()
			out.Header("Sources")
			rows := make([][]string, 0, len(sources))
			for _, src := range sources {
				rows = append(rows, []string{
					src.ID,
					src.Title,
					fmt.Sprintf("%d", src.Pages),
					fmt.Sprintf("%d", src.ChunkCount),
				})
			}
			out.Table([]string{"id", "title", "pages", "chunks"}, rows)
			return nil
		},
	}

	return cmd
}

// printTelemetry shows persisted query metrics when the serve command
// has recorded any. Absence of the metrics database is not an error.
func printTelemetry(out *output.Writer, dataDir string) {
	dbPath := filepath.Join(dataDir, "metrics.db")
	if _, err := os.Stat(dbPath); err != nil {
		return
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return
	}
	defer db.Close()

	store, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		return
	}

	from := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	to := time.Now().Format("2006-01-02")

	counts, err := store.GetQueryTypeCounts(from, to)
	if err != nil || len(counts) == 0 {
		return
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	out.Newline()
	out.Header("Queries (30 days)")
	out.KeyValue("Total", fmt.Sprintf("%d", total))
	out.KeyValue("Hybrid", fmt.Sprintf("%d", counts[telemetry.QueryTypeHybrid]))
	out.KeyValue("Dense only", fmt.Sprintf("%d", counts[telemetry.QueryTypeDense]))
	out.KeyValue("Lexical only", fmt.Sprintf("%d", counts[telemetry.QueryTypeLexical]))

	if terms, err := store.GetTopTerms(5); err == nil && len(terms) > 0 {
		parts := make([]string, 0, len(terms))
		for _, tc := range terms {
			parts = append(parts, fmt.Sprintf("%s (%d)", tc.Term, tc.Count))
		}
		out.KeyValue("Top terms", strings.Join(parts, ", "))
	}

	if misses, err := store.GetZeroResultQueries(3); err == nil && len(misses) > 0 {
		out.KeyValue("Recent misses", strings.Join(misses, "; "))
	}
}
