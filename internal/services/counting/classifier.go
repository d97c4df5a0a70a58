package counting

import (
	"fmt"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/capacity"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/linecrossing"
)

// Classifier turns crossing transitions into CrossingEvents
type Classifier struct {
	table *capacity.Table
}

// NewClassifier creates a classifier over a read-only capacity table
func NewClassifier(table *capacity.Table) *Classifier {
	return &Classifier{table: table}
}

// Classify looks up the capacity of the transition's category. Errors wrap
// capacity.ErrUnknownCategory; callers drop the transition and keep going.
func (c *Classifier) Classify(t linecrossing.Transition) (models.CrossingEvent, error) {
	r, err := c.table.Lookup(t.Category)
	if err != nil {
		return models.CrossingEvent{}, fmt.Errorf("classify track %s: %w", t.TrackID, err)
	}

	return models.CrossingEvent{
		Role:       t.Role,
		TrackID:    t.TrackID,
		Category:   t.Category,
		Direction:  t.Direction,
		Timestamp:  t.Timestamp,
		FrameIndex: t.FrameIndex,
		Capacity:   r,
	}, nil
}
