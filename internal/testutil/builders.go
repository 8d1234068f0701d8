package testutil

import (
	"encoding/json"
	"testing"

	"github.com/quillsuite/quill-go/internal/domain/identity"
)

// RecordBuilder provides a fluent interface for building identity records
// for testing.
type RecordBuilder struct {
	rec identity.Record
}

// NewRecord creates a RecordBuilder with sensible defaults.
func NewRecord() *RecordBuilder {
	return &RecordBuilder{
		rec: identity.Record{
			ID:          "user-1",
			Email:       "test.user@example.com",
			DisplayName: "Test User",
			Role:        identity.RoleMember,
		},
	}
}

// WithID sets the record ID.
func (b *RecordBuilder) WithID(id string) *RecordBuilder {
	b.rec.ID = id
	return b
}

// WithEmail sets the record email.
func (b *RecordBuilder) WithEmail(email string) *RecordBuilder {
	b.rec.Email = email
	return b
}

// WithRole sets the record role.
func (b *RecordBuilder) WithRole(role identity.Role) *RecordBuilder {
	b.rec.Role = role
	return b
}

// AsGuest marks the record as a temporary guest.
func (b *RecordBuilder) AsGuest() *RecordBuilder {
	b.rec.Role = identity.RoleGuest
	b.rec.IsTemporary = true
	if b.rec.DisplayName == "Test User" {
		b.rec.DisplayName = "Guest"
	}
	return b
}

// Build returns the record.
func (b *RecordBuilder) Build() identity.Record {
	return b.rec
}

// JSON returns the record serialized the way the identity cache stores it.
func (b *RecordBuilder) JSON(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(b.rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	return string(data)
}
