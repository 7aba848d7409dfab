package subscription

// PriceBreakdown is the derived charge sheet for one week. All values
// are decimal currency units matching the order platform's
// representation; the platform recomputes the total at persistence time
// and wins on mismatch.
type PriceBreakdown struct {
	BasePrice     float64 `json:"base_price"`
	AddOnTotal    float64 `json:"add_on_total"`
	DeliveryPrice float64 `json:"delivery_price"`
	ChargesTotal  float64 `json:"charges_total"`
	WeekTotal     float64 `json:"week_total"`
	Tax           float64 `json:"tax"`
	GrandTotal    float64 `json:"grand_total"`
}

// ComputePricing derives the week's charges from the cart contents, the
// plan's price and tax metadata, and the delivery price for the
// customer's zone.
func ComputePricing(cart *WeekCart, plan *Plan, deliveryPrice float64) PriceBreakdown {
	breakdown := PriceBreakdown{DeliveryPrice: deliveryPrice}
	if plan == nil {
		return breakdown
	}

	if cart != nil {
		for _, p := range cart.Products {
			if p.IsEmpty() || !p.IsAddOn {
				continue
			}
			// A missing surcharge counts as zero, never as an error.
			breakdown.AddOnTotal += p.AddOnPrice
		}
	}

	breakdown.ChargesTotal = plan.BasePrice + breakdown.AddOnTotal + deliveryPrice

	if plan.IsTaxIncluded {
		// Back the tax portion out of the inclusive total.
		backedOut := breakdown.ChargesTotal - breakdown.ChargesTotal*100/(100+plan.TaxRate)
		breakdown.WeekTotal = breakdown.ChargesTotal - backedOut
	} else {
		breakdown.WeekTotal = breakdown.ChargesTotal
	}

	breakdown.Tax = breakdown.WeekTotal * (plan.TaxRate / 100)
	breakdown.GrandTotal = breakdown.WeekTotal + breakdown.Tax

	if plan.IsTaxIncluded {
		breakdown.BasePrice = breakdown.WeekTotal - (breakdown.AddOnTotal + deliveryPrice)
	} else {
		breakdown.BasePrice = plan.BasePrice
	}

	return breakdown
}
