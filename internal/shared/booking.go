package shared

// RequestType distinguishes the two booking flavours.
type RequestType string

const (
	RequestTypeRepair RequestType = "repair"
	RequestTypeRental RequestType = "rental"
)

func (t RequestType) IsValid() bool {
	switch t {
	case RequestTypeRepair, RequestTypeRental:
		return true
	}
	return false
}

func (t RequestType) String() string {
	return string(t)
}

// Cost-category tags attached to priced lines of a booking. Coupons list the
// tags they apply to; the set is open, these are the ones the catalog emits.
const (
	TagRepairServices        = "repair_services"
	TagServiceMechanicCharge = "service_mechanic_charge"
	TagRentalBicycles        = "rental_bicycles"
	TagDeliveryCharges       = "delivery_charges"
)
