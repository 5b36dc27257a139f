package domain

import "time"

// WarningKind classifies a detected safety or consistency condition.
type WarningKind string

const (
	WarningDoorOpened     WarningKind = "door_opened"
	WarningMwGrillOverlap WarningKind = "mw_grill_overlap"
	WarningOutOfRange     WarningKind = "out_of_range"
)

// Warning is an append-only record of a condition detected during a run.
// Never mutated after creation.
type Warning struct {
	Kind        WarningKind `json:"kind"`
	Timestamp   time.Time   `json:"ts"`
	Description string      `json:"description"`
	Fatal       bool        `json:"fatal"`
}

// HasFatal reports whether any warning in the list forces an overall Fail.
func HasFatal(warnings []Warning) bool {
	for _, w := range warnings {
		if w.Fatal {
			return true
		}
	}
	return false
}
