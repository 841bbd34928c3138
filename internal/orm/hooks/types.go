// Package hooks runs functions registered per definition around the cascade's writes.
// Before hooks run inside the transaction and abort it by returning an error; after
// hooks run once the outermost transaction commits.
package hooks

import "strings"

// Event is a point of an entity's lifecycle
type Event int

const (
	BeforeSave Event = iota
	AfterSave
	BeforeDelete
	AfterDelete
)

// String returns the string representation of the event
func (e Event) String() string {
	switch e {
	case BeforeSave:
		return "before_save"
	case AfterSave:
		return "after_save"
	case BeforeDelete:
		return "before_delete"
	case AfterDelete:
		return "after_delete"
	default:
		return "unknown"
	}
}

// IsAfter reports whether the event fires after commit
func (e Event) IsAfter() bool {
	return e == AfterSave || e == AfterDelete
}

// ParseEvent reads an event name such as "before_save"
func ParseEvent(s string) (Event, bool) {
	for _, e := range []Event{BeforeSave, AfterSave, BeforeDelete, AfterDelete} {
		if strings.EqualFold(e.String(), s) {
			return e, true
		}
	}
	return 0, false
}
