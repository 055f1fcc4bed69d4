package service

import (
	"github.com/shopspring/decimal"

	"bikeshop-backend/internal/config"
	"bikeshop-backend/internal/domains/booking/model"
	requestModel "bikeshop-backend/internal/domains/request/model"
	"bikeshop-backend/internal/shared"
	"bikeshop-backend/internal/shared/utils"
)

const (
	lineMechanicVisit = "mechanic_visit"
	lineDelivery      = "delivery"
)

// Pricer totals a booking from the catalog.
type Pricer struct {
	catalog *config.Catalog
}

func NewPricer(catalog *config.Catalog) *Pricer {
	return &Pricer{catalog: catalog}
}

// Price builds the priced lines and the set of cost tags they carry.
// Repairs: each service × quantity, plus the mechanic visit charge when
// requested. Rentals: hourly rate × hours × quantity per bicycle, plus the
// delivery charge when requested.
func (p *Pricer) Price(req *model.SubmitBookingRequest) (*model.Quote, error) {
	quote := &model.Quote{
		RequestType: req.RequestType,
		Currency:    p.catalog.Currency,
		Lines:       make([]requestModel.LineItem, 0, len(req.Items)+1),
		TotalAmount: decimal.Zero,
	}

	for _, item := range req.Items {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}

		var line requestModel.LineItem
		switch req.RequestType {
		case shared.RequestTypeRepair:
			svc, ok := p.catalog.Service(item.Code)
			if !ok {
				return nil, unknownItem(item.Code, req.RequestType)
			}
			line = requestModel.LineItem{
				Code:      svc.Code,
				Name:      svc.Name,
				Tag:       svc.Tag,
				Quantity:  qty,
				UnitPrice: svc.Price,
				Amount:    svc.Price.Mul(decimal.NewFromInt(int64(qty))),
			}

		case shared.RequestTypeRental:
			bike, ok := p.catalog.Bicycle(item.Code)
			if !ok {
				return nil, unknownItem(item.Code, req.RequestType)
			}
			line = requestModel.LineItem{
				Code:          bike.Code,
				Name:          bike.Name,
				Tag:           bike.Tag,
				Quantity:      qty,
				DurationHours: item.DurationHours,
				UnitPrice:     bike.HourlyRate,
				Amount: bike.HourlyRate.
					Mul(decimal.NewFromInt(int64(item.DurationHours))).
					Mul(decimal.NewFromInt(int64(qty))),
			}

		default:
			return nil, unknownItem(item.Code, req.RequestType)
		}

		quote.Lines = append(quote.Lines, line)
	}

	if req.RequestType == shared.RequestTypeRepair && req.MechanicVisit {
		quote.Lines = append(quote.Lines, surcharge(lineMechanicVisit, "Mechanic visit", shared.TagServiceMechanicCharge, p.catalog.MechanicVisitCharge))
	}
	if req.RequestType == shared.RequestTypeRental && req.Delivery {
		quote.Lines = append(quote.Lines, surcharge(lineDelivery, "Delivery", shared.TagDeliveryCharges, p.catalog.DeliveryCharge))
	}

	tags := make([]string, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		quote.TotalAmount = quote.TotalAmount.Add(line.Amount)
		tags = append(tags, line.Tag)
	}
	quote.Tags = utils.UniqueStrings(tags)
	quote.TotalAmount = quote.TotalAmount.Round(2)

	return quote, nil
}

func surcharge(code, name, tag string, amount decimal.Decimal) requestModel.LineItem {
	return requestModel.LineItem{
		Code:      code,
		Name:      name,
		Tag:       tag,
		Quantity:  1,
		UnitPrice: amount,
		Amount:    amount,
	}
}

func unknownItem(code string, typ shared.RequestType) error {
	return model.ErrUnknownItem.WithDetails(map[string]interface{}{
		"code":         code,
		"request_type": typ,
	})
}
