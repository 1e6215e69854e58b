// Package collection journals the elements collected across capture devices
// and computes the per-day element balance behind the daily fortune.
package collection

import (
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-fortuna/pkg/element"
)

// Record is one collected element.
type Record struct {
	ID          string          `json:"id"`
	Device      string          `json:"device"`
	Entity      uint64          `json:"entity"`
	Element     element.Element `json:"element"`
	Label       string          `json:"label,omitempty"`
	Confidence  float64         `json:"confidence,omitempty"`
	CollectedAt time.Time       `json:"collected_at"`
}

// NewRecord creates a record for a freshly classified entity.
func NewRecord(device string, entity uint64, el element.Element, label string, confidence float64) *Record {
	return &Record{
		ID:          uuid.New().String(),
		Device:      device,
		Entity:      entity,
		Element:     el,
		Label:       label,
		Confidence:  confidence,
		CollectedAt: time.Now(),
	}
}

// Balance is a per-element tally of collected records.
type Balance map[element.Element]int

// Tally counts records per element.
func Tally(records []*Record) Balance {
	balance := make(Balance)
	for _, rec := range records {
		balance[rec.Element]++
	}
	return balance
}

// Missing returns the elements with no collected records, in canonical order.
func (b Balance) Missing() []element.Element {
	var missing []element.Element
	for _, el := range element.All {
		if b[el] == 0 {
			missing = append(missing, el)
		}
	}
	return missing
}

// Dominant returns the most collected element. Ties resolve to the earlier
// element in canonical order; an empty balance returns element.Other.
func (b Balance) Dominant() element.Element {
	dominant := element.Other
	best := 0
	for _, el := range element.All {
		if b[el] > best {
			dominant = el
			best = b[el]
		}
	}
	return dominant
}

// Total returns the number of collected records in the balance.
func (b Balance) Total() int {
	total := 0
	for _, el := range element.All {
		total += b[el]
	}
	return total
}
