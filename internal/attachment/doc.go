// Package attachment binds declared version sets to fields of owner
// records and drives their lifecycle across the local and remote storage
// tiers: store, download, remove, reprocess and URL generation.
//
// An attachment Type is declared once and shared read-only:
//
//	cover, err := attachment.NewType("Post",
//	    attachment.WithVersion("thumb", version.Options{version.OptResizeToFill: "200x200"}),
//	    attachment.WithVersion("big", version.Options{version.OptResize: "300x300"}),
//	    attachment.WithLocal(storage.NewLocalBackend(root)),
//	    attachment.WithRemote(remote),
//	    attachment.StoreRemotely(),
//	)
//
// A Manager then binds it to a persisted owner:
//
//	a, err := manager.Attach(ctx, cover, post, "cover_image")
//	err = a.Store(ctx, file, "")
//	url, err := a.URL(ctx, "thumb")
//
// Attachments are not safe for concurrent mutation. Callers serialize
// writes per (owner, field), typically with the owner store's row lock.
package attachment
