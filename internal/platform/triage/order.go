package triage

import (
	"sort"
	"time"
)

// Sortable is implemented by records that can be triage-ordered.
type Sortable interface {
	RawPriority() string
	CreatedTime() time.Time
}

// SortByUrgency orders items by priority rank descending, then creation time
// descending. The sort is stable so rows with identical keys keep their
// insertion order and a re-rendered list never reorders visually identical
// rows.
func SortByUrgency[T Sortable](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := RankRaw(items[i].RawPriority()), RankRaw(items[j].RawPriority())
		if ri != rj {
			return ri > rj
		}
		return items[i].CreatedTime().After(items[j].CreatedTime())
	})
}
