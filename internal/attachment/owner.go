package attachment

import "context"

// Owner is the record an attachment belongs to. The attachment only ever
// reads and writes its own field, holding the serialized Value.
type Owner interface {
	// TypeName names the owner's record type, e.g. "Post".
	TypeName() string
	// ID is the owner's primary key. It must be non-empty once persisted.
	ID() string
	// IsPersisted reports whether the owner has been saved.
	IsPersisted() bool
	// Read returns the raw stored value of field ("" when NULL).
	Read(ctx context.Context, field string) (string, error)
	// Update stores value in field; "" clears it.
	Update(ctx context.Context, field, value string) error
}
