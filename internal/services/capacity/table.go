package capacity

import (
	"errors"
	"fmt"
	"sort"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

// ErrUnknownCategory is returned for categories absent from the table
var ErrUnknownCategory = errors.New("unknown category")

// Table maps vehicle categories to occupant ranges. It is never mutated after
// construction and is safe for concurrent reads.
type Table struct {
	ranges map[models.Category]models.CapacityRange
}

// Default returns the built-in seat capacities
func Default() *Table {
	t, _ := New(map[models.Category]models.CapacityRange{
		"Sedan":      {Min: 1, Max: 5},
		"SUV":        {Min: 1, Max: 8},
		"Pickup":     {Min: 1, Max: 6},
		"Van":        {Min: 1, Max: 15},
		"Bus":        {Min: 1, Max: 50},
		"Truck":      {Min: 1, Max: 3},
		"Motorcycle": {Min: 1, Max: 2},
	})
	return t
}

// New validates and copies ranges into a Table
func New(ranges map[models.Category]models.CapacityRange) (*Table, error) {
	t := &Table{ranges: make(map[models.Category]models.CapacityRange, len(ranges))}
	for category, r := range ranges {
		if category == "" {
			return nil, fmt.Errorf("empty category name")
		}
		if r.Min < 0 || r.Max < r.Min {
			return nil, fmt.Errorf("invalid capacity for %s: [%d, %d]", category, r.Min, r.Max)
		}
		t.ranges[category] = r
	}
	return t, nil
}

// Lookup returns the capacity of a category. Matching is exact.
func (t *Table) Lookup(category models.Category) (models.CapacityRange, error) {
	r, ok := t.ranges[category]
	if !ok {
		return models.CapacityRange{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return r, nil
}

// Categories returns the known category names in sorted order
func (t *Table) Categories() []models.Category {
	out := make([]models.Category, 0, len(t.ranges))
	for c := range t.ranges {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
