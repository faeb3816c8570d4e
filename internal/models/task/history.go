package task

import (
	"encoding/json"
	"fmt"
	"time"
)

type Field string

const FieldName Field = "name"
const FieldDepartment Field = "department"
const FieldUserID Field = "userId"
const FieldComments Field = "comments"
const FieldStatus Field = "status"

// SystemActor marks history written by background maintenance.
const SystemActor = "system"

// Change is one typed field change. Each variant carries its own old/new
// payload; the set of variants is closed.
type Change interface {
	Field() Field
	values() (oldValue, newValue any)
}

type NameChange struct{ Old, New string }
type DepartmentChange struct{ Old, New string }
type AssigneeChange struct{ Old, New string }
type CommentsChange struct{ Old, New string }

// StatusChange has a nil Old for the entry written at creation.
type StatusChange struct {
	Old *Status
	New Status
}

func (NameChange) Field() Field       { return FieldName }
func (DepartmentChange) Field() Field { return FieldDepartment }
func (AssigneeChange) Field() Field   { return FieldUserID }
func (CommentsChange) Field() Field   { return FieldComments }
func (StatusChange) Field() Field     { return FieldStatus }

func (c NameChange) values() (any, any)       { return c.Old, c.New }
func (c DepartmentChange) values() (any, any) { return c.Old, c.New }
func (c AssigneeChange) values() (any, any)   { return c.Old, c.New }
func (c CommentsChange) values() (any, any)   { return c.Old, c.New }
func (c StatusChange) values() (any, any) {
	if c.Old == nil {
		return nil, c.New
	}
	return *c.Old, c.New
}

// HistoryEntry is an immutable audit record.
type HistoryEntry struct {
	Change    Change
	Timestamp time.Time
	ChangedBy string
}

func (e HistoryEntry) Field() Field {
	if e.Change == nil {
		return ""
	}
	return e.Change.Field()
}

type historyWire struct {
	Field     Field           `json:"field"`
	OldValue  json.RawMessage `json:"oldValue"`
	NewValue  json.RawMessage `json:"newValue"`
	Timestamp time.Time       `json:"timestamp"`
	ChangedBy string          `json:"changedBy,omitempty"`
}

func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	if e.Change == nil {
		return nil, fmt.Errorf("history entry without change")
	}
	oldValue, newValue := e.Change.values()
	oldRaw, err := json.Marshal(oldValue)
	if err != nil {
		return nil, err
	}
	newRaw, err := json.Marshal(newValue)
	if err != nil {
		return nil, err
	}
	return json.Marshal(historyWire{
		Field:     e.Change.Field(),
		OldValue:  oldRaw,
		NewValue:  newRaw,
		Timestamp: e.Timestamp,
		ChangedBy: e.ChangedBy,
	})
}

func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	var w historyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var (
		oldText, newText string
		change           Change
	)
	if w.Field != FieldStatus {
		if err := decodeText(w.OldValue, &oldText); err != nil {
			return fmt.Errorf("history %s old value: %w", w.Field, err)
		}
		if err := decodeText(w.NewValue, &newText); err != nil {
			return fmt.Errorf("history %s new value: %w", w.Field, err)
		}
	}

	switch w.Field {
	case FieldName:
		change = NameChange{Old: oldText, New: newText}
	case FieldDepartment:
		change = DepartmentChange{Old: oldText, New: newText}
	case FieldUserID:
		change = AssigneeChange{Old: oldText, New: newText}
	case FieldComments:
		change = CommentsChange{Old: oldText, New: newText}
	case FieldStatus:
		var sc StatusChange
		var oldStatus *Status
		if err := json.Unmarshal(nullable(w.OldValue), &oldStatus); err != nil {
			return fmt.Errorf("history status old value: %w", err)
		}
		if err := json.Unmarshal(nullable(w.NewValue), &sc.New); err != nil {
			return fmt.Errorf("history status new value: %w", err)
		}
		sc.Old = oldStatus
		change = sc
	default:
		return fmt.Errorf("unknown history field %q", w.Field)
	}

	e.Change = change
	e.Timestamp = w.Timestamp
	e.ChangedBy = w.ChangedBy
	return nil
}

func nullable(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func decodeText(raw json.RawMessage, dst *string) error {
	var s *string
	if err := json.Unmarshal(nullable(raw), &s); err != nil {
		return err
	}
	if s != nil {
		*dst = *s
	}
	return nil
}
