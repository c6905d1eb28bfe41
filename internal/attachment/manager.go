package attachment

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/logging"
)

// Downloader fetches a URL into sink and closes it.
type Downloader interface {
	Download(ctx context.Context, rawURL string, sink io.WriteCloser) error
}

// Settings are the process-wide switches shared by every attachment.
type Settings struct {
	// ProcessingEnabled turns image transformation on. When off, every
	// version is a byte copy of the source.
	ProcessingEnabled bool
	// TransferEnabled allows types that store remotely to move files to
	// the remote tier. Development setups usually leave it off.
	TransferEnabled bool
	Downloader      Downloader
	Logger          logging.Logger
	// TempDir holds processing and download staging files; "" means
	// os.TempDir.
	TempDir string
}

// Manager binds attachment types to owners under shared settings.
type Manager struct {
	settings Settings
}

func NewManager(s Settings) *Manager {
	if s.Logger == nil {
		s.Logger = logging.NewNopLogger()
	}
	return &Manager{settings: s}
}

func (m *Manager) Settings() Settings {
	return m.settings
}

// Attach loads the attachment stored in owner's field.
func (m *Manager) Attach(ctx context.Context, t *Type, owner Owner, field string) (*Attachment, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil attachment type", common.ErrInvalidInput)
	}
	if owner == nil || !owner.IsPersisted() || owner.ID() == "" {
		return nil, fmt.Errorf("%w: owner must be persisted before attaching files", common.ErrInvalidInput)
	}
	if field == "" {
		return nil, fmt.Errorf("%w: empty attachment field", common.ErrInvalidInput)
	}

	raw, err := owner.Read(ctx, field)
	if err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", owner.TypeName(), field, err)
	}
	val, err := ParseValue(raw)
	if err != nil {
		return nil, err
	}

	a := &Attachment{
		typ:      t,
		owner:    owner,
		field:    field,
		basename: val.Filename,
		settings: m.settings,
		logger:   m.settings.Logger.With("owner_type", owner.TypeName(), "owner_id", owner.ID(), "field", field),
	}
	a.versions = newVersionsResolver(a, t.versions)
	return a, nil
}
