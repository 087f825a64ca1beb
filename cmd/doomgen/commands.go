package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"doom-index/internal/domain"
	"doom-index/internal/server"
	"doom-index/internal/storage"
	"doom-index/internal/storage/migrations"
	pgstore "doom-index/internal/storage/postgres"
)

func runCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one generation cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.orchestrator.Run(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func serveCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run cycles on a schedule and serve the ops HTTP endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			tracker := server.NewTracker()
			srv := server.New(server.Options{
				Addr:      addr,
				Paintings: a.stores.paintings,
				Tracker:   tracker,
				Logger:    c.logger,
			})
			sched := newScheduler(a.orchestrator, tracker, c.cfg.Schedule.Interval, c.cfg.Schedule.RunOnStart, c.logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })
			g.Go(func() error { return sched.Run(gctx) })

			err = g.Wait()
			if ctx.Err() != nil {
				c.logger.Info().Msg("shutdown complete")
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "ops server address (default from config)")
	return cmd
}

func migrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded Postgres and ClickHouse migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if c.cfg.Postgres.DSN == "" && c.cfg.ClickHouse.DSN == "" {
				return fmt.Errorf("nothing to migrate: neither postgres nor clickhouse dsn is set")
			}

			if c.cfg.Postgres.DSN != "" {
				pool, err := pgstore.NewPool(ctx, c.cfg.Postgres.DSN)
				if err != nil {
					return fmt.Errorf("connect to postgres: %w", err)
				}
				applied, err := migrations.RunPostgresMigrations(ctx, pool)
				pool.Close()
				if err != nil {
					return err
				}
				c.logger.Info().Strs("applied", applied).Msg("postgres migrations done")
			}

			if c.cfg.ClickHouse.DSN != "" {
				conn, applied, err := migrations.RunClickhouseMigrations(ctx, c.cfg.ClickHouse.DSN)
				if err != nil {
					return err
				}
				_ = conn.Close()
				c.logger.Info().Strs("applied", applied).Msg("clickhouse migrations done")
			}
			return nil
		},
	}
}

// listedPainting is the line format of the list command.
type listedPainting struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Bucket     string `json:"bucket"`
	TokenID    string `json:"tokenId"`
	ParamsHash string `json:"paramsHash"`
	Seed       string `json:"seed"`
	ImageURL   string `json:"imageUrl"`
	FileSize   int64  `json:"fileSize"`
}

func toListed(p *domain.Painting) listedPainting {
	return listedPainting{
		ID:         p.ID,
		Timestamp:  p.Timestamp,
		Bucket:     p.Bucket,
		TokenID:    p.TokenID,
		ParamsHash: p.ParamsHash,
		Seed:       p.Seed,
		ImageURL:   p.ImageURL,
		FileSize:   p.FileSize,
	}
}

func listCmd(c *cli) *cobra.Command {
	var (
		limit     int
		cursor    string
		direction string
		since     time.Duration
		all       bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print stored paintings as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, closeStores, err := openStores(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer closeStores()

			dir, err := storage.ParseDirection(direction)
			if err != nil {
				return err
			}
			q := storage.ListQuery{Limit: limit, Cursor: cursor, Direction: dir}
			if since > 0 {
				from := time.Now().Add(-since).Unix()
				q.From = &from
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for {
				page, err := st.paintings.List(ctx, q)
				if err != nil {
					return err
				}
				for _, p := range page.Items {
					if err := enc.Encode(toListed(p)); err != nil {
						return err
					}
				}
				if !page.HasMore {
					return nil
				}
				if !all {
					fmt.Fprintf(cmd.ErrOrStderr(), "next cursor: %s\n", page.NextCursor)
					return nil
				}
				q.Cursor = page.NextCursor
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", storage.DefaultListLimit, "page size")
	cmd.Flags().StringVar(&cursor, "cursor", "", "resume from a previous page's cursor")
	cmd.Flags().StringVar(&direction, "direction", "desc", "asc or desc by timestamp")
	cmd.Flags().DurationVar(&since, "since", 0, "only paintings newer than this")
	cmd.Flags().BoolVar(&all, "all", false, "follow cursors until the last page")
	return cmd
}
