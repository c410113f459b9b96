package cli

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var withdrawFeesCmd = &cobra.Command{
	Use:   "withdraw-fees [amount]",
	Short: "Withdraw collected platform fees to the owner account",
	Args:  cobra.ExactArgs(1),
	Run:   runWithdrawFees,
}

func init() {
	rootCmd.AddCommand(withdrawFeesCmd)
}

func runWithdrawFees(cmd *cobra.Command, args []string) {
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || amount <= 0 {
		fmt.Printf("Invalid amount: %s\n", args[0])
		os.Exit(1)
	}

	// Routed through the running engine so the token transfer to the owner
	// and the fee-pool ledger entry move together.
	callAdmin("/admin/withdraw-fees", url.Values{"amount": {args[0]}})
}
