package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync/internal/model"
	"github.com/sells-group/leadsync/internal/normalize"
	"github.com/sells-group/leadsync/internal/pipeline"
	"github.com/sells-group/leadsync/internal/store"
	"github.com/sells-group/leadsync/pkg/indiamart"
	"github.com/sells-group/leadsync/pkg/tradeindia"
)

func newIndiaMARTClient() indiamart.Client {
	var opts []indiamart.Option
	if cfg.IndiaMART.BaseURL != "" {
		opts = append(opts, indiamart.WithBaseURL(cfg.IndiaMART.BaseURL))
	}
	if cfg.IndiaMART.RateLimit > 0 {
		opts = append(opts, indiamart.WithRateLimit(cfg.IndiaMART.RateLimit))
	}
	return indiamart.NewClient(cfg.IndiaMART.APIKey, opts...)
}

func newTradeIndiaClient() tradeindia.Client {
	var opts []tradeindia.Option
	if cfg.TradeIndia.BaseURL != "" {
		opts = append(opts, tradeindia.WithBaseURL(cfg.TradeIndia.BaseURL))
	}
	if cfg.TradeIndia.RateLimit > 0 {
		opts = append(opts, tradeindia.WithRateLimit(cfg.TradeIndia.RateLimit))
	}
	creds := tradeindia.Credentials{
		UserID:    cfg.TradeIndia.UserID,
		ProfileID: cfg.TradeIndia.ProfileID,
		Key:       cfg.TradeIndia.Key,
	}
	return tradeindia.NewClient(creds, opts...)
}

// newSource builds the pipeline source for a vendor, backed by st for
// reference-data resolution during normalization.
func newSource(vendor model.Vendor, st store.Store) (pipeline.Source, error) {
	norm := normalize.New(st)
	switch vendor {
	case model.VendorIndiaMART:
		return pipeline.NewIndiaMARTSource(cfg.IndiaMART, newIndiaMARTClient(), norm), nil
	case model.VendorTradeIndia:
		return pipeline.NewTradeIndiaSource(cfg.TradeIndia, newTradeIndiaClient(), norm), nil
	default:
		return nil, eris.Errorf("unknown vendor: %s", vendor)
	}
}
