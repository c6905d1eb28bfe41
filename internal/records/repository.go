// Package records persists the owner records attachments belong to. Each
// record is identified by (type, id) and carries named text fields that
// hold serialized attachment values.
package records

import "context"

// Repository is the per-dialect storage of records and their fields.
type Repository interface {
	Create(ctx context.Context, typeName, id string) error
	Exists(ctx context.Context, typeName, id string) (bool, error)
	// Lock blocks until the record is exclusively held by the current
	// transaction. It returns common.ErrNotFound for unknown records.
	Lock(ctx context.Context, typeName, id string) error
	ListIDs(ctx context.Context, typeName string) ([]string, error)
	Delete(ctx context.Context, typeName, id string) error
	// GetField returns "" for a field that was never set or was cleared.
	GetField(ctx context.Context, typeName, id, field string) (string, error)
	// SetField stores value; "" clears the field.
	SetField(ctx context.Context, typeName, id, field, value string) error
}
