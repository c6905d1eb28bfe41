// Package app wires configuration, storage tiers, owner records and the
// attachment manager into the operations exposed by the vstore command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrijs2005/vstore/internal/attachment"
	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/config"
	"github.com/dmitrijs2005/vstore/internal/downloader"
	"github.com/dmitrijs2005/vstore/internal/filex"
	"github.com/dmitrijs2005/vstore/internal/logging"
	"github.com/dmitrijs2005/vstore/internal/metrics"
	"github.com/dmitrijs2005/vstore/internal/records"
	"github.com/dmitrijs2005/vstore/internal/storage"
	"github.com/dmitrijs2005/vstore/internal/version"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	local    *storage.LocalBackend
	remote   storage.Backend
	store    *records.Store
	manager  *attachment.Manager
	types    map[string]*attachment.Type
}

type options struct {
	logger     logging.Logger
	remote     storage.Backend
	downloader attachment.Downloader
}

// Option overrides a dependency NewApp would otherwise build from config.
type Option func(*options)

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRemote replaces the S3 backend built from the S3* settings.
func WithRemote(b storage.Backend) Option {
	return func(o *options) { o.remote = b }
}

func WithDownloader(d attachment.Downloader) Option {
	return func(o *options) { o.downloader = d }
}

// NewApp opens the database, applies migrations and builds every
// configured attachment type.
func NewApp(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewJSONLogger(os.Stderr, cfg.LogLevel)
	}

	app := &App{config: cfg, logger: o.logger, registry: prometheus.NewRegistry()}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(app.registry)
	if err != nil {
		return nil, fmt.Errorf("metrics init error: %w", err)
	}
	app.metrics = m

	if err := app.initStorage(ctx, o.remote); err != nil {
		return nil, err
	}

	dl := o.downloader
	if dl == nil {
		dl = downloader.New(downloader.WithTimeout(cfg.DownloadTimeout), downloader.WithMetrics(m))
	}
	tempDir := ""
	if cfg.TempDir != "" {
		if tempDir, err = filex.EnsureDir(cfg.TempDir); err != nil {
			return nil, err
		}
	}
	app.manager = attachment.NewManager(attachment.Settings{
		ProcessingEnabled: cfg.ProcessingEnabled,
		TransferEnabled:   cfg.TransferEnabled,
		Downloader:        dl,
		Logger:            app.logger.With("module", "attachment"),
		TempDir:           tempDir,
	})

	if app.types, err = app.buildTypes(); err != nil {
		return nil, err
	}

	store, err := records.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}
	app.store = store

	app.logger.Info(ctx, "app initialized",
		"dialect", string(store.Dialect()),
		"storage_path", cfg.StoragePath,
		"remote", app.remote != nil,
		"types", len(app.types))
	return app, nil
}

func (app *App) initStorage(ctx context.Context, remote storage.Backend) error {
	cfg := app.config
	if cfg.StoragePath != "" {
		root, err := filex.EnsureDir(cfg.StoragePath)
		if err != nil {
			return fmt.Errorf("storage init error: %w", err)
		}
		app.local = storage.NewLocalBackend(root)
	}

	if remote == nil && cfg.HasRemote() {
		rb, err := storage.NewRemoteBackend(ctx, storage.RemoteConfig{
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
			PublicURL:    cfg.S3PublicURL,
		})
		if err != nil {
			return fmt.Errorf("remote storage init error: %w", err)
		}
		remote = rb
	}
	if remote != nil {
		app.remote = storage.Instrument(remote, app.metrics)
	}
	return nil
}

func (app *App) buildTypes() (map[string]*attachment.Type, error) {
	types := make(map[string]*attachment.Type, len(app.config.Types))
	for _, tc := range app.config.Types {
		opts := make([]attachment.TypeOption, 0, len(tc.Versions)+6)
		for _, vc := range tc.Versions {
			opts = append(opts, attachment.WithVersion(vc.Name, version.Options(vc.Options)))
		}
		if app.local != nil {
			opts = append(opts, attachment.WithLocal(storage.InstrumentLocal(app.local, app.metrics)))
		}
		if app.remote != nil {
			opts = append(opts, attachment.WithRemote(app.remote))
		}
		if tc.Storage != "" {
			tier, err := storage.ParseTier(tc.Storage)
			if err != nil {
				return nil, fmt.Errorf("attachment type %s: %w", tc.Name, err)
			}
			opts = append(opts, attachment.UseStorage(tier))
		}
		if tc.StoreRemotely {
			opts = append(opts, attachment.StoreRemotely())
		}
		if tc.Meta {
			opts = append(opts, attachment.EnableMeta())
		}
		if tc.Structured {
			opts = append(opts, attachment.StructuredValue())
		}

		t, err := attachment.NewType(tc.Name, opts...)
		if err != nil {
			return nil, err
		}
		types[tc.Name] = t
	}
	return types, nil
}

// Close releases the database handle.
func (app *App) Close() error {
	if app.store == nil {
		return nil
	}
	return app.store.Close()
}

// Type returns the configured attachment type.
func (app *App) Type(name string) (*attachment.Type, error) {
	t, ok := app.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown attachment type %q", common.ErrInvalidInput, name)
	}
	return t, nil
}

// CreateRecord inserts an owner record of a configured type. An empty id
// is generated.
func (app *App) CreateRecord(ctx context.Context, typeName, id string) (string, error) {
	if _, err := app.Type(typeName); err != nil {
		return "", err
	}
	var (
		owner *records.Owner
		err   error
	)
	if id == "" {
		owner, err = app.store.Create(ctx, typeName)
	} else {
		owner, err = app.store.CreateWithID(ctx, typeName, id)
	}
	if err != nil {
		return "", err
	}
	app.logger.Info(ctx, "record created", "type", typeName, "id", owner.ID())
	return owner.ID(), nil
}

// Ref addresses one attachment field of one record.
type Ref struct {
	Type  string
	ID    string
	Field string
}

func (r Ref) String() string {
	return r.Type + "/" + r.ID + "." + r.Field
}

// withAttachment runs fn on the attachment under the record's lock.
func (app *App) withAttachment(ctx context.Context, ref Ref, fn func(ctx context.Context, a *attachment.Attachment) error) error {
	t, err := app.Type(ref.Type)
	if err != nil {
		return err
	}
	return app.store.WithLockedOwner(ctx, ref.Type, ref.ID, func(ctx context.Context, owner *records.Owner) error {
		a, err := app.manager.Attach(ctx, t, owner, ref.Field)
		if err != nil {
			return err
		}
		return fn(ctx, a)
	})
}

// StoreFile stores the file at path. name overrides its file name.
func (app *App) StoreFile(ctx context.Context, ref Ref, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", common.ErrInvalidInput, path, err)
	}
	defer f.Close()
	return app.Store(ctx, ref, f, name)
}

// Store stores src, which must be re-readable.
func (app *App) Store(ctx context.Context, ref Ref, src attachment.Source, name string) error {
	return app.withAttachment(ctx, ref, func(ctx context.Context, a *attachment.Attachment) error {
		return a.Store(ctx, src, name)
	})
}

// Download replaces the attachment with the file at rawURL. The previous
// files are removed and the cleared value committed first, so a failed
// download leaves a blank attachment rather than a value naming deleted files.
func (app *App) Download(ctx context.Context, ref Ref, rawURL string) error {
	err := app.withAttachment(ctx, ref, func(ctx context.Context, a *attachment.Attachment) error {
		if !a.Present() {
			return nil
		}
		return a.Remove(ctx)
	})
	if err != nil {
		return err
	}
	return app.withAttachment(ctx, ref, func(ctx context.Context, a *attachment.Attachment) error {
		return a.Download(ctx, rawURL)
	})
}

func (app *App) Remove(ctx context.Context, ref Ref) error {
	return app.withAttachment(ctx, ref, func(ctx context.Context, a *attachment.Attachment) error {
		return a.Remove(ctx)
	})
}

func (app *App) Reprocess(ctx context.Context, ref Ref) error {
	return app.withAttachment(ctx, ref, func(ctx context.Context, a *attachment.Attachment) error {
		return a.Reprocess(ctx)
	})
}

// ReprocessAll reprocesses field on every record of typeName. It keeps
// going past failures and reports them joined.
func (app *App) ReprocessAll(ctx context.Context, typeName, field string) (int, error) {
	ids, err := app.store.ListIDs(ctx, typeName)
	if err != nil {
		return 0, err
	}
	var errs []error
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ref := Ref{Type: typeName, ID: id, Field: field}
		if err := app.Reprocess(ctx, ref); err != nil {
			app.logger.Error(ctx, "reprocess failed", "ref", ref.String(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ref, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// URL returns the address of one version; "" means original.
func (app *App) URL(ctx context.Context, ref Ref, versionName string, opts ...storage.URLOption) (string, error) {
	a, err := app.attachment(ctx, ref)
	if err != nil {
		return "", err
	}
	if versionName == "" {
		versionName = common.DefaultVersionName
	}
	return a.VersionURL(ctx, versionName, opts...)
}

// Info describes the stored attachment.
type Info struct {
	State attachment.State
	Value attachment.Value
}

func (app *App) Info(ctx context.Context, ref Ref) (Info, error) {
	a, err := app.attachment(ctx, ref)
	if err != nil {
		return Info{}, err
	}
	state, err := a.State(ctx)
	if err != nil {
		return Info{}, err
	}
	v, err := a.Value(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{State: state, Value: v}, nil
}

// attachment loads a read-only view without taking the record lock.
func (app *App) attachment(ctx context.Context, ref Ref) (*attachment.Attachment, error) {
	t, err := app.Type(ref.Type)
	if err != nil {
		return nil, err
	}
	owner, err := app.store.Find(ctx, ref.Type, ref.ID)
	if err != nil {
		return nil, err
	}
	return app.manager.Attach(ctx, t, owner, ref.Field)
}

// Fetch copies the named version's bytes to w from whichever tier holds it.
func (app *App) Fetch(ctx context.Context, ref Ref, versionName string, w io.Writer) error {
	a, err := app.attachment(ctx, ref)
	if err != nil {
		return err
	}
	if a.Blank() {
		return fmt.Errorf("%w: %s is blank", common.ErrNotFound, ref)
	}
	if versionName == "" {
		versionName = common.DefaultVersionName
	}
	s, err := a.Version(versionName)
	if err != nil {
		return err
	}
	rc, err := s.Read(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(w, rc)
	return err
}
