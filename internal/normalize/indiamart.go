package normalize

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync/internal/model"
	"github.com/sells-group/leadsync/pkg/indiamart"
)

// probabilityByQueryType maps IndiaMART query-type codes to lead
// probability. Unknown or absent codes fall back to 10.
var probabilityByQueryType = map[string]int{
	"P":   75,
	"W":   50,
	"WA":  40,
	"B":   25,
	"BIZ": 10,
}

const defaultProbability = 10

// FromIndiaMART maps one Pull API record into a canonical lead.
func (n *Normalizer) FromIndiaMART(ctx context.Context, rec indiamart.Record) (*model.Lead, error) {
	if rec.UniqueQueryID == "" {
		return nil, ErrMissingID
	}

	sender := rec.SenderName
	if sender == "" {
		sender = "Unknown"
	}
	subject := rec.Subject
	if subject == "" {
		subject = "Inquiry"
	}

	probability := defaultProbability
	if p, ok := probabilityByQueryType[rec.QueryType]; ok {
		probability = p
	}

	lead := &model.Lead{
		Vendor:         model.VendorIndiaMART,
		VendorUniqueID: rec.UniqueQueryID,
		DisplayName:    sender + " - " + subject,
		ContactName:    sender,
		CompanyName:    model.StringPtr(rec.SenderCompany),
		Email:          model.StringPtr(rec.SenderEmail),
		Phone:          model.StringPtr(rec.SenderMobile),
		City:           model.StringPtr(rec.SenderCity),
		Street:         model.StringPtr(rec.SenderAddress),
		PostalCode:     model.StringPtr(rec.SenderPincode),
		Probability:    probability,
		QueryType:      model.StringPtr(rec.QueryType),
		Description:    describeIndiaMART(rec),
	}

	if rec.SenderState != "" {
		id, err := n.refs.FindStateByName(ctx, rec.SenderState)
		if err != nil {
			return nil, eris.Wrap(err, "normalize: resolve state")
		}
		lead.StateID = model.StringPtr(id)
	}
	if rec.SenderCountryISO != "" {
		id, err := n.refs.FindCountryByCode(ctx, rec.SenderCountryISO)
		if err != nil {
			return nil, eris.Wrap(err, "normalize: resolve country")
		}
		lead.CountryID = model.StringPtr(id)
	}

	sourceID, err := n.refs.GetOrCreateSource(ctx, model.VendorIndiaMART.SourceName())
	if err != nil {
		return nil, eris.Wrap(err, "normalize: resolve source")
	}
	lead.SourceID = sourceID

	return lead, nil
}

func describeIndiaMART(rec indiamart.Record) string {
	return fmt.Sprintf(
		"IndiaMART Lead\n%s\n"+
			"Subject: %s\n"+
			"Message: %s\n\n"+
			"Product: %s\n"+
			"Category: %s\n"+
			"Location: %s, %s\n"+
			"Query Type: %s\n"+
			"Query Time: %s\n"+
			"IndiaMART ID: %s\n",
		separator,
		orNA(rec.Subject),
		orNA(rec.QueryMessage),
		orNA(rec.QueryProductName),
		orNA(rec.QueryMcatName),
		rec.SenderCity, rec.SenderState,
		rec.QueryType,
		orNA(rec.QueryTime),
		rec.UniqueQueryID,
	)
}
