package main

import (
	"fmt"
	"io"
	"time"

	"secret.share/internal/gate"
	"secret.share/internal/models"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secrets and their expiry status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := initStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		all, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		printSecrets(cmd.OutOrStdout(), all, time.Now())
		return nil
	},
}

var (
	activeStyle  = color.New(color.FgGreen)
	expiredStyle = color.New(color.FgRed)
)

func printSecrets(w io.Writer, all []*models.Secret, now time.Time) {
	if len(all) == 0 {
		fmt.Fprintln(w, "No secrets stored.")
		return
	}

	fmt.Fprintf(w, "  %-36s  %-20s  %-6s  %-5s  %-5s  %-20s  %s\n",
		"ID", "CREATED", "EXPIRY", "LIMIT", "VIEWS", "REMAINING", "STATUS")
	active := 0
	for _, s := range all {
		remaining := "-"
		status := expiredStyle.Sprint("expired")
		if !s.Expired(now) {
			active++
			remaining = gate.RemainingAfter(s.Policy, s.CreatedAt, now, s.ViewCount).Message()
			status = activeStyle.Sprint("active")
		}
		fmt.Fprintf(w, "  %-36s  %-20s  %-6s  %-5d  %-5d  %-20s  %s\n",
			s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04:05"), s.Policy.Kind, s.Policy.Value,
			s.ViewCount, remaining, status)
	}
	fmt.Fprintf(w, "\n  %d secret(s), %d active\n", len(all), active)
}
