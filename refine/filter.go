package refine

import "fmt"

// Filter represents a mask transform that can be applied per frame.
//
// Filters must not mutate their input; stateful filters write into buffers
// they own and return those instead.
type Filter interface {
	// Apply processes a mask and returns the filtered mask
	Apply(m *Mask) (*Mask, error)
	// GetName returns the filter name for identification
	GetName() string
}

// FilterChain applies multiple filters in sequence.
type FilterChain struct {
	filters []Filter
}

// NewFilterChain creates a new filter processing chain.
func NewFilterChain() *FilterChain {
	return &FilterChain{
		filters: make([]Filter, 0),
	}
}

// AddFilter adds a filter to the processing chain.
func (fc *FilterChain) AddFilter(filter Filter) {
	fc.filters = append(fc.filters, filter)
}

// Apply processes a mask through all filters in the chain.
//
// An empty chain is the identity: the input mask is returned unchanged,
// consistent with the disabled contract of the individual filters.
func (fc *FilterChain) Apply(m *Mask) (*Mask, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	current := m
	for i, filter := range fc.filters {
		result, err := filter.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s) failed: %w", i, filter.GetName(), err)
		}
		current = result
	}

	return current, nil
}

// GetFilterCount returns the number of filters in the chain.
func (fc *FilterChain) GetFilterCount() int {
	return len(fc.filters)
}

// Clear removes all filters from the chain.
func (fc *FilterChain) Clear() {
	fc.filters = fc.filters[:0]
}
