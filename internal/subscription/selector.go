package subscription

import "github.com/google/uuid"

// Directions accepted by OccurrenceSelector.Advance.
const (
	DirectionNext     = "next"
	DirectionPrevious = "previous"
)

// OccurrenceSelector tracks which week is active out of the
// deliverable occurrences loaded for a subscription. Rotation wraps in
// both directions; a single-occurrence list wraps to itself. The
// selector is not safe for concurrent use on its own; the owning
// session serializes access.
type OccurrenceSelector struct {
	occurrences []*Occurrence
	current     int
}

// NewOccurrenceSelector filters the candidate list down to deliverable
// occurrences and designates the first as active. Returns
// ErrNoOccurrences when nothing survives the filter.
func NewOccurrenceSelector(candidates []*Occurrence) (*OccurrenceSelector, error) {
	filtered := FilterDeliverable(candidates)
	if len(filtered) == 0 {
		return nil, ErrNoOccurrences
	}
	return &OccurrenceSelector{occurrences: filtered}, nil
}

// Active returns the currently designated occurrence.
func (s *OccurrenceSelector) Active() *Occurrence {
	return s.occurrences[s.current]
}

// Len returns the number of deliverable occurrences.
func (s *OccurrenceSelector) Len() int {
	return len(s.occurrences)
}

// Occurrences returns the deliverable list in planner order.
func (s *OccurrenceSelector) Occurrences() []*Occurrence {
	return s.occurrences
}

// Find returns the occurrence with the given id, or nil.
func (s *OccurrenceSelector) Find(id uuid.UUID) *Occurrence {
	for _, occ := range s.occurrences {
		if occ.ID == id {
			return occ
		}
	}
	return nil
}

// Advance rotates the active occurrence one step in the given
// direction, wrapping modulo the list length, and returns the newly
// active occurrence. The caller must re-hydrate the new week's cart
// before accepting mutations against it.
func (s *OccurrenceSelector) Advance(direction string) (*Occurrence, error) {
	n := len(s.occurrences)
	switch direction {
	case DirectionNext:
		s.current = (s.current + 1 + n) % n
	case DirectionPrevious:
		s.current = (s.current - 1 + n) % n
	default:
		return nil, ErrUnknownDirection
	}
	return s.occurrences[s.current], nil
}
