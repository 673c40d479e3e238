package main

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadsync/internal/model"
	"github.com/sells-group/leadsync/internal/pipeline"
)

var fetchAll bool

var fetchCmd = &cobra.Command{
	Use:   "fetch [vendor]",
	Short: "Run a scheduled fetch for one vendor, or --all",
	Long: "Pulls new inquiries over the vendor's implicit window (IndiaMART: since " +
		"the previous pull; TradeIndia: today) and creates leads for records not " +
		"already present. A failed run is recorded in the fetch log and exits zero, " +
		"matching unattended cron semantics.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		vendors, err := vendorArgs(args, fetchAll)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var (
			mu        sync.Mutex
			summaries []*pipeline.Summary
		)

		// Vendors are independent; fetch them concurrently. Scheduled runs
		// never propagate vendor errors, so the group only carries setup
		// failures.
		g, gctx := errgroup.WithContext(ctx)
		for _, vendor := range vendors {
			g.Go(func() error {
				src, err := newSource(vendor, st)
				if err != nil {
					return err
				}
				sum, err := pipeline.New(src, st).Run(gctx, pipeline.Scheduled())
				if err != nil {
					return err
				}
				mu.Lock()
				summaries = append(summaries, sum)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	},
}

// vendorArgs resolves the positional vendor argument and the --all flag
// into the list of vendors to operate on.
func vendorArgs(args []string, all bool) ([]model.Vendor, error) {
	if all {
		return []model.Vendor{model.VendorIndiaMART, model.VendorTradeIndia}, nil
	}
	if len(args) == 0 {
		return nil, eris.New("a vendor argument (indiamart, tradeindia) or --all is required")
	}
	v, err := model.ParseVendor(args[0])
	if err != nil {
		return nil, err
	}
	return []model.Vendor{v}, nil
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchAll, "all", false, "fetch from every configured vendor")
	rootCmd.AddCommand(fetchCmd)
}
