package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditAction constants represent actions recorded against posts.
const (
	AuditActionCreate  = "CREATE"
	AuditActionUpdate  = "UPDATE"
	AuditActionArchive = "ARCHIVE"
	AuditActionDelete  = "DELETE"
	AuditActionPublish = "PUBLISH"
)

// AuditEntityPost is the entity label used for post audit events.
const AuditEntityPost = "POST"

// AuditScopeGlobal marks events that are not tied to a class.
const AuditScopeGlobal = "GLOBAL"

// FieldChange captures the before/after value of a single field.
type FieldChange struct {
	Before interface{} `json:"before"`
	After  interface{} `json:"after"`
}

// AuditDiff maps a field name to its change.
type AuditDiff map[string]FieldChange

// Value marshals the diff to JSON for persistence.
func (d AuditDiff) Value() (driver.Value, error) {
	return marshalJSONColumn(map[string]FieldChange(d), "audit diff")
}

// Scan unmarshals JSON payloads into the diff.
func (d *AuditDiff) Scan(value interface{}) error {
	decoded := map[string]FieldChange{}
	if err := scanJSONColumn(value, &decoded, "audit diff"); err != nil {
		return err
	}
	*d = decoded
	return nil
}

// AuditMeta carries free-form context for an audit event.
type AuditMeta map[string]interface{}

// Value marshals the meta to JSON for persistence.
func (m AuditMeta) Value() (driver.Value, error) {
	return marshalJSONColumn(map[string]interface{}(m), "audit meta")
}

// Scan unmarshals JSON payloads into the meta.
func (m *AuditMeta) Scan(value interface{}) error {
	decoded := map[string]interface{}{}
	if err := scanJSONColumn(value, &decoded, "audit meta"); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// Actor identifies who performed a mutation.
type Actor struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Role  UserRole `json:"role"`
}

// AuditEvent is an append-only record of a post mutation.
type AuditEvent struct {
	ID          string    `db:"id" json:"id"`
	ActorID     string    `db:"actor_id" json:"actor_id"`
	ActorName   string    `db:"actor_name" json:"actor_name"`
	ActorEmail  string    `db:"actor_email" json:"actor_email,omitempty"`
	ActorRole   UserRole  `db:"actor_role" json:"actor_role"`
	Action      string    `db:"action" json:"action"`
	Entity      string    `db:"entity" json:"entity"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	EntityLabel string    `db:"entity_label" json:"entity_label"`
	Scope       string    `db:"scope" json:"scope"`
	ClassName   *string   `db:"class_name" json:"class_name,omitempty"`
	Diff        AuditDiff `db:"diff" json:"diff"`
	Meta        AuditMeta `db:"meta" json:"meta,omitempty"`
	At          time.Time `db:"at" json:"at"`
}

func marshalJSONColumn(v interface{}, label string) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", label, err)
	}
	return data, nil
}

func scanJSONColumn(value interface{}, dest interface{}, label string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, label)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", label, err)
	}
	return nil
}
