package attachment

import (
	"fmt"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/version"
)

// VersionsResolver gives named and ordered access to an attachment's
// version storages.
type VersionsResolver struct {
	order  []*VersionStorage
	byName map[string]*VersionStorage
}

func newVersionsResolver(a *Attachment, vs []version.Version) *VersionsResolver {
	r := &VersionsResolver{
		order:  make([]*VersionStorage, 0, len(vs)),
		byName: make(map[string]*VersionStorage, len(vs)),
	}
	for _, v := range vs {
		s := &VersionStorage{attachment: a, version: v}
		r.order = append(r.order, s)
		r.byName[v.Name()] = s
	}
	return r
}

// Lookup returns the storage of the named version.
func (r *VersionsResolver) Lookup(name string) (*VersionStorage, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrVersionNotExists, name)
	}
	return s, nil
}

// All returns every version storage in declaration order.
func (r *VersionsResolver) All() []*VersionStorage {
	out := make([]*VersionStorage, len(r.order))
	copy(out, r.order)
	return out
}

func (r *VersionsResolver) Names() []string {
	names := make([]string, len(r.order))
	for i, s := range r.order {
		names[i] = s.Name()
	}
	return names
}

func (r *VersionsResolver) Len() int {
	return len(r.order)
}
