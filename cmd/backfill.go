package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadsync/internal/model"
	"github.com/sells-group/leadsync/internal/pipeline"
)

var (
	backfillFrom string
	backfillTo   string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill <vendor>",
	Short: "Re-fetch a historical window for a vendor",
	Long: "Pulls inquiries over an explicit --from/--to window. IndiaMART backfills " +
		"skip records already present and accept up to seven days; TradeIndia " +
		"backfills re-insert everything in range and accept a single calendar day.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		vendor, err := model.ParseVendor(args[0])
		if err != nil {
			return err
		}

		win, err := parseWindow(backfillFrom, backfillTo)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		src, err := newSource(vendor, st)
		if err != nil {
			return err
		}

		sum, err := pipeline.New(src, st).Run(ctx, pipeline.Backfill(win))
		if err != nil {
			return eris.Wrap(err, "backfill")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	},
}

// parseWindow accepts either full timestamps (RFC 3339) or bare dates. A
// bare --to date is widened to the end of that day so "one day" windows
// behave as users expect.
func parseWindow(from, to string) (model.Window, error) {
	start, _, err := parseWhen(from)
	if err != nil {
		return model.Window{}, eris.Wrap(err, "parse --from")
	}
	end, endDateOnly, err := parseWhen(to)
	if err != nil {
		return model.Window{}, eris.Wrap(err, "parse --to")
	}
	if endDateOnly {
		end = end.Add(24*time.Hour - time.Second)
	}
	return model.Window{Start: start, End: end}, nil
}

func parseWhen(s string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, eris.Errorf("%q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return t, false, nil
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "window start (YYYY-MM-DD or RFC 3339, required)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "window end (YYYY-MM-DD or RFC 3339, required)")
	_ = backfillCmd.MarkFlagRequired("from")
	_ = backfillCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(backfillCmd)
}
