// Package ops implements the operations the decision-maker can select:
// availability checks, scheduling, lookups, cancellation, rescheduling and
// human handover. Every operation returns a Portuguese, user-presentable
// string; the dispatcher feeds it back into the transcript verbatim.
package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dpereira/agendai/internal/decider"
)

// Operation is one action the decision-maker can invoke.
type Operation interface {
	Name() string
	Description() string
	// Schema is a JSON Schema string for the operation's arguments.
	Schema() string
	// Execute runs the operation. The returned string is always usable as
	// a transcript entry, even when err is non-nil; err exists for logging.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds the available operations in registration order.
type Registry struct {
	order  []string
	byName map[string]Operation
}

// NewRegistry creates a registry over the given operations.
func NewRegistry(ops ...Operation) *Registry {
	r := &Registry{byName: make(map[string]Operation, len(ops))}
	for _, op := range ops {
		r.order = append(r.order, op.Name())
		r.byName[op.Name()] = op
	}
	return r
}

// Get returns the named operation, or nil.
func (r *Registry) Get(name string) Operation {
	return r.byName[name]
}

// Definitions returns the operation definitions in registration order.
func (r *Registry) Definitions() []decider.OperationDef {
	defs := make([]decider.OperationDef, 0, len(r.order))
	for _, name := range r.order {
		op := r.byName[name]
		defs = append(defs, decider.OperationDef{
			Name:        op.Name(),
			Description: op.Description(),
			Schema:      op.Schema(),
		})
	}
	return defs
}

// stringArg reads a string argument, tolerating absent keys and non-string
// scalars the decision-maker occasionally produces.
func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

var weekdaysPTBR = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

// formatDay renders "02/01/2006".
func formatDay(t time.Time) string {
	return t.Format("02/01/2006")
}

// formatDateTime renders "02/01/2006 15:04".
func formatDateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// formatFriendly renders "02/01 (segunda-feira) às 15:04", the shape used
// in WhatsApp-facing messages.
func formatFriendly(t time.Time) string {
	return fmt.Sprintf("%s (%s) às %s",
		t.Format("02/01"), weekdaysPTBR[int(t.Weekday())], t.Format("15:04"))
}

// parseDateTime parses a decision-maker-supplied timestamp in the given
// location. Seconds and offsets are optional.
func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable datetime %q", s)
}

// parseDate parses a "2006-01-02" date in the given location.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, loc)
}
