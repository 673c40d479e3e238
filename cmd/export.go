package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/leadsync/internal/model"
	"github.com/sells-group/leadsync/internal/store"
)

var (
	exportOut    string
	exportVendor string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter := store.LeadFilter{Limit: exportLimit}
		if exportVendor != "" {
			v, err := model.ParseVendor(exportVendor)
			if err != nil {
				return err
			}
			filter.Vendor = v
		}

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "list leads")
		}

		if err := writeLeadsXLSX(exportOut, leads); err != nil {
			return err
		}

		zap.L().Info("exported leads", zap.Int("count", len(leads)), zap.String("path", exportOut))
		fmt.Printf("Wrote %d leads to %s\n", len(leads), exportOut)
		return nil
	},
}

var leadExportHeader = []string{
	"ID", "Vendor", "Vendor UID", "Display Name", "Contact", "Company",
	"Email", "Phone", "City", "State", "Country", "Probability", "Created At",
}

// writeLeadsXLSX writes leads to a single-sheet workbook at path.
func writeLeadsXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range leadExportHeader {
		header.AddCell().SetString(h)
	}

	for _, l := range leads {
		row := sheet.AddRow()
		row.AddCell().SetString(l.ID)
		row.AddCell().SetString(string(l.Vendor))
		row.AddCell().SetString(l.VendorUniqueID)
		row.AddCell().SetString(l.DisplayName)
		row.AddCell().SetString(l.ContactName)
		row.AddCell().SetString(deref(l.CompanyName))
		row.AddCell().SetString(deref(l.Email))
		row.AddCell().SetString(deref(l.Phone))
		row.AddCell().SetString(deref(l.City))
		row.AddCell().SetString(deref(l.StateID))
		row.AddCell().SetString(deref(l.CountryID))
		row.AddCell().SetInt(l.Probability)
		row.AddCell().SetString(l.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "leads.xlsx", "output file path")
	exportCmd.Flags().StringVar(&exportVendor, "vendor", "", "filter by vendor (indiamart, tradeindia)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max leads to export (0 = all)")
	rootCmd.AddCommand(exportCmd)
}
