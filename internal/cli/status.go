package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paywow/settlement/internal/core/config"
	"github.com/paywow/settlement/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent transactions and open disputes",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)

	rows, err := db.QueryContext(ctx,
		"SELECT transaction_id, payer, payee, amount, status, type FROM transactions ORDER BY created_at DESC LIMIT 20")
	if err != nil {
		slog.Error("Failed to query transactions", "error", err)
		os.Exit(1)
	}

	_, _ = fmt.Fprintln(w, "TRANSACTION\tPAYER\tPAYEE\tAMOUNT\tSTATUS\tTYPE")
	for rows.Next() {
		var id, payer, payee, status, txType string
		var amount int64
		if err := rows.Scan(&id, &payer, &payee, &amount, &status, &txType); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", id, payer, payee, amount, status, txType)
	}
	_ = rows.Close()
	_ = w.Flush()

	rows, err = db.QueryContext(ctx,
		"SELECT dispute_id, transaction_id, claimant, amount, resolution_deadline, status FROM disputes WHERE status IN ('filed', 'under_review') ORDER BY resolution_deadline ASC")
	if err != nil {
		slog.Error("Failed to query disputes", "error", err)
		os.Exit(1)
	}

	_, _ = fmt.Fprintln(w, "\nDISPUTE\tTRANSACTION\tCLAIMANT\tAMOUNT\tDEADLINE\tSTATUS")
	for rows.Next() {
		var id, txID, claimant, status string
		var amount, deadline int64
		if err := rows.Scan(&id, &txID, &claimant, &amount, &deadline, &status); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", id, txID, claimant, amount, deadline, status)
	}
	_ = rows.Close()
	_ = w.Flush()
}
