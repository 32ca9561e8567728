package main

import (
	"secret.share/internal/sweep"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark time-expired secrets and purge old ones",
	Long: `Runs one housekeeping pass over the configured store. Secrets whose time
budget has run out are marked expired; expired secrets older than
secrets.purge_after are deleted when that setting is non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := initStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := sweep.New(st, log, cfg.Secrets.PurgeAfter.Duration).Once(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("%d secret(s) marked expired, %d purged\n", res.Expired, res.Purged)
		return nil
	},
}
