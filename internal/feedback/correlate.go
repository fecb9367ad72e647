package feedback

// CorrelateByID finds the delivery a feedback event concerns, by exact
// delivery-id match.
func CorrelateByID(deliveries []Delivery, deliveryID string) (Delivery, bool) {
	if deliveryID == "" {
		return Delivery{}, false
	}
	for _, d := range deliveries {
		if d.DeliveryID == deliveryID {
			return d, true
		}
	}
	return Delivery{}, false
}

// CorrelateByDealName finds the delivery for an outcome event. Outcome
// webhooks carry no delivery id, so matching is by deal-name equality; when
// several deliveries match, the earliest in insertion order wins.
func CorrelateByDealName(deliveries []Delivery, dealName string) (Delivery, bool) {
	if dealName == "" {
		return Delivery{}, false
	}
	for _, d := range deliveries {
		if d.DealName == dealName {
			return d, true
		}
	}
	return Delivery{}, false
}
