package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/ingest"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/output"
)

func newIngestCmd() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract, chunk, and index the manifest documents",
		Long: `Ingest reads the sources manifest, extracts text from each document
(PDF, text, or markdown), chunks it, and indexes the chunks in both the
dense and lexical indices. Re-ingesting a document replaces its previous
chunks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if rebuild {
				if err := removeIndices(cfg.Paths.DataDir); err != nil {
					return fmt.Errorf("failed to remove existing indices: %w", err)
				}
				out.Info("existing indices removed")
			}

			stack, err := openStack(cfg)
			if err != nil {
				return err
			}
			defer stack.Close()

			ingestor, err := ingest.NewIngestor(stack.engine, stack.chunks, ingest.Config{
				RawDir:       cfg.Paths.RawDir,
				ManifestPath: cfg.Paths.ManifestPath,
				LockDir:      cfg.Paths.DataDir,
				Workers:      cfg.Ingest.Workers,
				Chunker: ingest.ChunkerConfig{
					TargetChars:  cfg.Chunker.TargetChars,
					MinChars:     cfg.Chunker.MinChars,
					OverlapParas: cfg.Chunker.OverlapParas,
				},
			})
			if err != nil {
				return err
			}

			report, err := ingestor.Run(cmd.Context())
			if err != nil {
				out.Errorf("ingest failed: %v", err)
				return err
			}

			if err := stack.saveDense(); err != nil {
				return fmt.Errorf("failed to persist dense index: %w", err)
			}

			out.Successf("ingested %d sources (%d chunks) in %s",
				report.Sources, report.Chunks, report.Duration.Round(time.Millisecond))
			for _, skipped := range report.Skipped {
				out.Warningf("skipped %s", skipped)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Drop existing indices before ingesting")

	return cmd
}

// removeIndices deletes the derived index files, leaving raw documents
// and the manifest alone.
func removeIndices(dataDir string) error {
	targets := []string{
		filepath.Join(dataDir, "chunks.db"),
		filepath.Join(dataDir, "lexical.db"),
		filepath.Join(dataDir, "vectors.hnsw"),
		filepath.Join(dataDir, "vectors.hnsw.meta"),
	}
	for _, path := range targets {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	// Bleve keeps a directory.
	if err := os.RemoveAll(filepath.Join(dataDir, "lexical.bleve")); err != nil {
		return err
	}
	return nil
}
