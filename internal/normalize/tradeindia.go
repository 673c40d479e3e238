package normalize

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync/internal/model"
	"github.com/sells-group/leadsync/pkg/tradeindia"
)

// TradeIndia does not report query types; every lead gets a flat 50.
const tradeIndiaProbability = 50

// The mobile field sometimes arrives wrapped in click-to-call markup.
var telAnchorRe = regexp.MustCompile(`</?a[^>]*>`)

// FromTradeIndia maps one my_inquiry record into a canonical lead.
func (n *Normalizer) FromTradeIndia(ctx context.Context, inq tradeindia.Inquiry) (*model.Lead, error) {
	id := string(inq.RFIID)
	if id == "" {
		return nil, ErrMissingID
	}

	sender := inq.SenderName
	if sender == "" {
		sender = "Unknown"
	}
	product := inq.ProductName
	if product == "" {
		product = inq.Subject
	}
	if product == "" {
		product = "Inquiry"
	}

	lead := &model.Lead{
		Vendor:         model.VendorTradeIndia,
		VendorUniqueID: id,
		DisplayName:    sender + " - " + product,
		ContactName:    sender,
		CompanyName:    model.StringPtr(inq.SenderCo),
		Email:          model.StringPtr(inq.SenderEmail),
		Phone:          model.StringPtr(StripPhoneMarkup(inq.SenderMobile)),
		City:           model.StringPtr(inq.SenderCity),
		Street:         model.StringPtr(inq.Address),
		Probability:    tradeIndiaProbability,
		Description:    describeTradeIndia(inq, product),
	}

	if inq.SenderState != "" {
		stateID, err := n.refs.FindStateByName(ctx, inq.SenderState)
		if err != nil {
			return nil, eris.Wrap(err, "normalize: resolve state")
		}
		lead.StateID = model.StringPtr(stateID)
	}
	if inq.SenderCountry != "" {
		countryID, err := n.refs.FindCountryByName(ctx, inq.SenderCountry)
		if err != nil {
			return nil, eris.Wrap(err, "normalize: resolve country")
		}
		lead.CountryID = model.StringPtr(countryID)
	}

	sourceID, err := n.refs.GetOrCreateSource(ctx, model.VendorTradeIndia.SourceName())
	if err != nil {
		return nil, eris.Wrap(err, "normalize: resolve source")
	}
	lead.SourceID = sourceID

	return lead, nil
}

// StripPhoneMarkup removes tel: anchor markup from a phone value, keeping
// only the inner text.
func StripPhoneMarkup(phone string) string {
	return strings.TrimSpace(telAnchorRe.ReplaceAllString(phone, ""))
}

func describeTradeIndia(inq tradeindia.Inquiry, product string) string {
	return fmt.Sprintf(
		"TradeIndia Lead\n%s\n"+
			"Product: %s\n"+
			"Subject: %s\n"+
			"Message: %s\n\n"+
			"Date/Time: %s %s\n"+
			"Source: %s\n"+
			"Type: %s\n"+
			"Location: %s, %s\n"+
			"RFI ID: %s\n",
		separator,
		product,
		orNA(inq.Subject),
		orNA(inq.Message),
		orNA(inq.GeneratedDate), inq.GeneratedTime,
		orNA(inq.Source),
		orNA(inq.InquiryType),
		inq.SenderCity, inq.SenderState,
		string(inq.RFIID),
	)
}
