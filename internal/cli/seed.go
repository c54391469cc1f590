package cli

import (
	"fmt"

	"github.com/Lambodaran/AgileProject-sub001/internal/config"
	pgloader "github.com/Lambodaran/AgileProject-sub001/internal/infra/postgres"
	"github.com/Lambodaran/AgileProject-sub001/internal/logging"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSeedCmd writes the bundled sample quiz sets into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample quiz sets into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			logger := logging.New(cfg)
			defer logger.Sync()

			ctx := cmd.Context()
			if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			loader := pgloader.NewQuizLoader(pool)
			for _, quiz := range sampleQuizSets() {
				if err := loader.SaveQuiz(ctx, quiz); err != nil {
					return fmt.Errorf("save quiz set %s: %w", quiz.ID, err)
				}
				logger.Info("quiz set stored", zap.String("quiz_set_id", quiz.ID), zap.Int("questions", len(quiz.Questions)))
			}
			return nil
		},
	}
}
