package attachment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/storage"
)

// Meta is per-version metadata recorded while a version is local.
type Meta struct {
	Size int64 `json:"size,omitempty"`
}

// VersionValue is the persisted record of one stored version.
type VersionValue struct {
	Key     string       `json:"key"`
	Storage storage.Tier `json:"storage"`
	Meta    *Meta        `json:"meta,omitempty"`
}

// Value is the persisted form of an attachment field. Older rows hold only
// the bare basename; structured rows also describe every version.
type Value struct {
	Filename string                  `json:"filename"`
	Versions map[string]VersionValue `json:"versions,omitempty"`
}

// ParseValue reads either persisted form. An empty string is a blank value.
func ParseValue(raw string) (Value, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Value{}, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Value{Filename: raw}, nil
	}
	var v Value
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return Value{}, fmt.Errorf("%w: malformed attachment value: %w", common.ErrInvalidInput, err)
	}
	return v, nil
}

// Present reports whether the value names a stored file.
func (v Value) Present() bool {
	return v.Filename != ""
}

// String renders the bare basename form.
func (v Value) String() string {
	return v.Filename
}

// JSON renders the structured form. A blank value renders as "".
func (v Value) JSON() (string, error) {
	if !v.Present() {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal attachment value: %w", err)
	}
	return string(b), nil
}
