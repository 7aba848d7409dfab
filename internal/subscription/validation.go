package subscription

// Pure derivations over cart state. These are recomputed on every read
// so callers never see a stale result.

// IsComplete reports whether every slot holds a selection. Combined
// with the occurrence's validity it gates submission.
func IsComplete(cart *WeekCart) bool {
	if cart == nil || len(cart.Products) == 0 {
		return false
	}
	for _, p := range cart.Products {
		if p.IsEmpty() {
			return false
		}
	}
	return true
}

// IsModifiable reports whether the customer may still change the week:
// the occurrence must be valid, the order cart must not have reached a
// terminal status, and the platform must not have invalidated the week
// server-side.
func IsModifiable(cart *WeekCart, occurrence *Occurrence) bool {
	if occurrence == nil || !occurrence.IsValid {
		return false
	}
	if cart == nil {
		return true
	}
	if cart.ValidStatus == ValidStatusInvalid {
		return false
	}
	return !IsTerminalCartStatus(cart.OrderCartStatus)
}

// CanSubmit reports whether the submit action should be enabled.
func CanSubmit(cart *WeekCart, occurrence *Occurrence) bool {
	return occurrence != nil && occurrence.IsValid && IsComplete(cart)
}
