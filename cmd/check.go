package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadsync/internal/model"
)

var checkAll bool

var checkCmd = &cobra.Command{
	Use:   "check [vendor]",
	Short: "Verify vendor API credentials and connectivity",
	Long:  "Performs a minimal authenticated call against the vendor API without creating any leads.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		vendors, err := vendorArgs(args, checkAll)
		if err != nil {
			return err
		}

		failed := false
		for _, vendor := range vendors {
			switch vendor {
			case model.VendorIndiaMART:
				if !cfg.IndiaMART.Configured() {
					fmt.Fprintf(os.Stderr, "indiamart: SKIP (api_key not set)\n")
					continue
				}
				msg, err := newIndiaMARTClient().Check(ctx)
				if err != nil {
					failed = true
					fmt.Fprintf(os.Stderr, "indiamart: FAIL (%v)\n", err)
					continue
				}
				fmt.Printf("indiamart: OK (%s)\n", msg)
			case model.VendorTradeIndia:
				if !cfg.TradeIndia.Configured() {
					fmt.Fprintf(os.Stderr, "tradeindia: SKIP (credentials not set)\n")
					continue
				}
				n, err := newTradeIndiaClient().Check(ctx)
				if err != nil {
					failed = true
					fmt.Fprintf(os.Stderr, "tradeindia: FAIL (%v)\n", err)
					continue
				}
				fmt.Printf("tradeindia: OK (%d recent inquiries)\n", n)
			}
		}

		if failed {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkAll, "all", false, "check every configured vendor")
	rootCmd.AddCommand(checkCmd)
}
