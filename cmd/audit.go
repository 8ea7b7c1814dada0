/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/garuda-portal/apiserver/config"
	"github.com/garuda-portal/apiserver/internal/mq"
	"github.com/spf13/cobra"
)

// auditCmd represents the audit command.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit trail commands",
}

// auditDrainCmd consumes the audit channel and writes each event to
// stdout as one JSON line, for piping into the archival tooling.
var auditDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Consume audit events and print them as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		bus, err := mq.NewFromConfig(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		defer func() {
			_ = bus.Close()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = bus.Subscribe(ctx, cfg.MQ.AuditChannel, func(ctx context.Context, msg mq.Message) error {
			fmt.Println(string(msg.Data))
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditDrainCmd)
}
