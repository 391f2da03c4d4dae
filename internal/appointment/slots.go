package appointment

import (
	"fmt"
	"time"
)

// SlotVocabulary is the set of bookable HH:MM labels for a day: start inclusive, end exclusive.
type SlotVocabulary struct {
	labels  []string
	allowed map[string]struct{}
}

func NewSlotVocabulary(start, end string, step time.Duration) (SlotVocabulary, error) {
	from, err := time.Parse("15:04", start)
	if err != nil {
		return SlotVocabulary{}, fmt.Errorf("slot day start %q: %w", start, err)
	}
	to, err := time.Parse("15:04", end)
	if err != nil {
		return SlotVocabulary{}, fmt.Errorf("slot day end %q: %w", end, err)
	}
	if step < time.Minute {
		return SlotVocabulary{}, fmt.Errorf("slot step %s must be at least a minute", step)
	}
	if !from.Before(to) {
		return SlotVocabulary{}, fmt.Errorf("slot day start %s must precede end %s", start, end)
	}

	v := SlotVocabulary{allowed: make(map[string]struct{})}
	for t := from; t.Before(to); t = t.Add(step) {
		label := t.Format("15:04")
		v.labels = append(v.labels, label)
		v.allowed[label] = struct{}{}
	}
	return v, nil
}

// DefaultSlots covers 08:00 to 20:00 in 30 minute steps.
func DefaultSlots() SlotVocabulary {
	v, err := NewSlotVocabulary("08:00", "20:00", 30*time.Minute)
	if err != nil {
		panic(err)
	}
	return v
}

func (v SlotVocabulary) Contains(label string) bool {
	_, ok := v.allowed[label]
	return ok
}

func (v SlotVocabulary) Labels() []string {
	return append([]string(nil), v.labels...)
}
