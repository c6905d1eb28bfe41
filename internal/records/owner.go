package records

import "context"

// Owner is a persisted record whose fields hold attachment values.
type Owner struct {
	typeName string
	id       string
	repo     Repository
}

func NewOwner(repo Repository, typeName, id string) *Owner {
	return &Owner{typeName: typeName, id: id, repo: repo}
}

func (o *Owner) TypeName() string {
	return o.typeName
}

func (o *Owner) ID() string {
	return o.id
}

// IsPersisted is always true: owners are only built for stored records.
func (o *Owner) IsPersisted() bool {
	return true
}

func (o *Owner) Read(ctx context.Context, field string) (string, error) {
	return o.repo.GetField(ctx, o.typeName, o.id, field)
}

func (o *Owner) Update(ctx context.Context, field, value string) error {
	return o.repo.SetField(ctx, o.typeName, o.id, field, value)
}
