package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/paywow/settlement/internal/core/config"
	"github.com/paywow/settlement/internal/fees"
)

var previewSplitCmd = &cobra.Command{
	Use:   "preview-split [amount] [merchant_fee_bps]",
	Short: "Preview the fee split for a payment amount",
	Args:  cobra.RangeArgs(1, 2),
	Run:   runPreviewSplit,
}

func init() {
	rootCmd.AddCommand(previewSplitCmd)
}

func runPreviewSplit(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Invalid amount: %s\n", args[0])
		os.Exit(1)
	}
	var merchantBps uint64
	if len(args) == 2 {
		merchantBps, err = strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			fmt.Printf("Invalid merchant fee bps: %s\n", args[1])
			os.Exit(1)
		}
	}

	split, err := fees.ComputeSplit(amount, cfg.Settlement.PlatformFeeBps, uint32(merchantBps))
	if err != nil {
		fmt.Printf("Cannot split: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("amount:       %d\n", amount)
	fmt.Printf("payee:        %d\n", split.PayeeAmount)
	fmt.Printf("platform fee: %d\n", split.PlatformFee)
	fmt.Printf("merchant fee: %d\n", split.MerchantFee)
}
