package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/infra/postgres"
)

// NewSyncCmd replays a user's offline queue against Postgres.
func NewSyncCmd(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay offline results of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			pool, err := openPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			if pool == nil {
				return fmt.Errorf("postgres url not configured")
			}
			defer pool.Close()

			queue, err := openOfflineQueue(cfg)
			if err != nil {
				return err
			}
			defer queue.Close()

			gateway := app.NewGateway(postgres.NewResultStore(pool), queue, log)
			report, syncErr := gateway.SyncOfflineProgress(ctx, userID)
			out, _ := json.MarshalIndent(report, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return syncErr
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id whose queue to replay")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
