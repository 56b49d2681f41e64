package cmd

import (
	"database/sql"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/output"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/qa"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/search"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/server"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var addr string
	var noTelemetry bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP question answering service",
		Long: `Serve exposes POST /ask and GET /healthz over HTTP until
interrupted. Query telemetry is recorded to the data directory unless
--no-telemetry is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			var opts []search.EngineOption
			var metrics *telemetry.QueryMetrics
			var metricsDB *sql.DB
			if !noTelemetry {
				metrics, metricsDB, err = openMetrics(cfg.Paths.DataDir)
				if err != nil {
					return err
				}
				opts = append(opts, search.WithMetrics(metrics))
			}

			stack, err := openStack(cfg, opts...)
			if err != nil {
				return err
			}
			defer stack.Close()
			if metrics != nil {
				defer func() {
					_ = metrics.Close()
					_ = metricsDB.Close()
				}()
			}

			service, err := qa.NewService(stack.engine, qa.Config{
				DefaultTopK: cfg.Search.DefaultTopK,
				MaxTopK:     cfg.Search.MaxTopK,
				Answer:      answerConfig(cfg),
			})
			if err != nil {
				return err
			}

			var srvOpts []server.Option
			if metrics != nil {
				srvOpts = append(srvOpts, server.WithTelemetry(metrics))
			}
			srvCfg := server.DefaultConfig()
			srvCfg.Addr = cfg.Server.Addr
			srv, err := server.NewServer(service, stack.engine, srvCfg, srvOpts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out.Successf("listening on %s", cfg.Server.Addr)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&noTelemetry, "no-telemetry", false, "Disable query telemetry collection")

	return cmd
}

// openMetrics opens the telemetry database and builds the collector.
func openMetrics(dataDir string) (*telemetry.QueryMetrics, *sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "metrics.db"))
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := telemetry.InitTelemetrySchema(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	store, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return telemetry.NewQueryMetrics(store), db, nil
}
