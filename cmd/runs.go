package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadsync/internal/model"
	"github.com/sells-group/leadsync/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect fetch run history",
	Long:  "Commands for listing and summarizing recorded fetch runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fetch runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		vendor, _ := cmd.Flags().GetString("vendor")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.LogFilter{Limit: limit}
		if vendor != "" {
			v, err := model.ParseVendor(vendor)
			if err != nil {
				return err
			}
			filter.Vendor = v
		}

		logs, err := st.ListFetchLogs(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(logs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, logs)
		return nil
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		logs, err := st.ListFetchLogs(ctx, store.LogFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(logs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("vendor", "", "filter by vendor (indiamart, tradeindia)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of fetch logs.
type runStats struct {
	Total    int
	Success  int
	Failure  int
	Manual   int
	Fetched  int
	Created  int
	ByVendor map[model.Vendor]int
}

func computeRunStats(logs []model.FetchLog) runStats {
	s := runStats{ByVendor: make(map[model.Vendor]int)}
	s.Total = len(logs)
	for _, l := range logs {
		switch l.Status {
		case model.RunStatusSuccess:
			s.Success++
		case model.RunStatusFailure:
			s.Failure++
		}
		if l.IsManual {
			s.Manual++
		}
		s.Fetched += l.LeadsFetched
		s.Created += l.LeadsCreated
		s.ByVendor[l.Vendor]++
	}
	return s
}

// formatRunsList writes a tabular list of fetch runs to out.
func formatRunsList(out io.Writer, logs []model.FetchLog) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tVENDOR\tMODE\tFETCHED\tCREATED\tSTATUS\tCREATED_AT")
	_, _ = fmt.Fprintln(w, "--\t------\t----\t-------\t-------\t------\t----------")

	for _, l := range logs {
		mode := "scheduled"
		if l.IsManual {
			mode = "manual"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			truncateID(l.ID),
			l.Vendor,
			mode,
			l.LeadsFetched,
			l.LeadsCreated,
			l.Status,
			l.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to out.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Success:\t%d\n", s.Success)
	_, _ = fmt.Fprintf(w, "Failure:\t%d\n", s.Failure)
	_, _ = fmt.Fprintf(w, "Manual:\t%d\n", s.Manual)
	_, _ = fmt.Fprintf(w, "Leads fetched:\t%d\n", s.Fetched)
	_, _ = fmt.Fprintf(w, "Leads created:\t%d\n", s.Created)
	for _, v := range []model.Vendor{model.VendorIndiaMART, model.VendorTradeIndia} {
		if n := s.ByVendor[v]; n > 0 {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", v, n)
		}
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
