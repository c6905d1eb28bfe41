package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/vstore/internal/app"
	"github.com/dmitrijs2005/vstore/internal/config"
	"github.com/dmitrijs2005/vstore/internal/storage"
)

// cli carries what every command needs: the raw arguments config is read
// from, the output stream and the lazily built App.
type cli struct {
	args []string
	out  io.Writer
	opts []app.Option
	app  *app.App
}

func (c *cli) close() {
	if c.app != nil {
		_ = c.app.Close()
		c.app = nil
	}
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "vstore",
		Short:         "Versioned attachment storage",
		Long:          "vstore stores files attached to records in named versions across local and S3 storage.\n\n" + config.Usage,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(c.args)
			if err != nil {
				return err
			}
			a, err := app.NewApp(cmd.Context(), cfg, c.opts...)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}
	root.PersistentFlags().StringP("config", "c", "", "path to JSON config file")

	for _, cmd := range []*cobra.Command{
		newCreateCommand(c),
		newStoreCommand(c),
		newDownloadCommand(c),
		newRemoveCommand(c),
		newReprocessCommand(c),
		newURLCommand(c),
		newInfoCommand(c),
		newServeCommand(c),
	} {
		// configuration flags are parsed by the config package
		cmd.FParseErrWhitelist = cobra.FParseErrWhitelist{UnknownFlags: true}
		root.AddCommand(cmd)
	}
	return root
}

// refFlags registers --type, --id and --field.
func refFlags(cmd *cobra.Command, ref *app.Ref, withID bool) {
	cmd.Flags().StringVar(&ref.Type, "type", "", "record type, e.g. Post")
	cmd.Flags().StringVar(&ref.Field, "field", "", "attachment field, e.g. cover")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("field")
	if withID {
		cmd.Flags().StringVar(&ref.ID, "id", "", "record id")
		_ = cmd.MarkFlagRequired("id")
	}
}

func newCreateCommand(c *cli) *cobra.Command {
	var typeName, id string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an owner record and print its id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			got, err := c.app.CreateRecord(cmd.Context(), typeName, id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.out, got)
			return err
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "record type, e.g. Post")
	cmd.Flags().StringVar(&id, "id", "", "record id (generated when empty)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newStoreCommand(c *cli) *cobra.Command {
	var (
		ref  app.Ref
		file string
		name string
	)
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store a local file in every version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.StoreFile(cmd.Context(), ref, file, name)
		},
	}
	refFlags(cmd, &ref, true)
	cmd.Flags().StringVar(&file, "file", "", "path of the file to store")
	cmd.Flags().StringVar(&name, "name", "", "file name to record instead of the file's own")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDownloadCommand(c *cli) *cobra.Command {
	var (
		ref app.Ref
		url string
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Replace the attachment with a file fetched over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Download(cmd.Context(), ref, url)
		},
	}
	refFlags(cmd, &ref, true)
	cmd.Flags().StringVar(&url, "url", "", "http or https URL to fetch")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newRemoveCommand(c *cli) *cobra.Command {
	var ref app.Ref
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete every stored version and clear the field",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Remove(cmd.Context(), ref)
		},
	}
	refFlags(cmd, &ref, true)
	return cmd
}

func newReprocessCommand(c *cli) *cobra.Command {
	var (
		ref app.Ref
		all bool
	)
	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Regenerate versions from the stored original",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case all && ref.ID != "":
				return errors.New("--all and --id are mutually exclusive")
			case all:
				n, err := c.app.ReprocessAll(cmd.Context(), ref.Type, ref.Field)
				fmt.Fprintf(c.out, "reprocessed %d record(s)\n", n)
				return err
			case ref.ID == "":
				return errors.New("either --id or --all is required")
			default:
				return c.app.Reprocess(cmd.Context(), ref)
			}
		},
	}
	refFlags(cmd, &ref, false)
	cmd.Flags().StringVar(&ref.ID, "id", "", "record id")
	cmd.Flags().BoolVar(&all, "all", false, "reprocess every record of the type")
	return cmd
}

func newURLCommand(c *cli) *cobra.Command {
	var (
		ref          app.Ref
		versionName  string
		withProtocol bool
	)
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the URL of a version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []storage.URLOption
			if withProtocol {
				opts = append(opts, storage.WithProtocol())
			}
			url, err := c.app.URL(cmd.Context(), ref, versionName, opts...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.out, url)
			return err
		},
	}
	refFlags(cmd, &ref, true)
	cmd.Flags().StringVar(&versionName, "version", "", "version name (default original)")
	cmd.Flags().BoolVar(&withProtocol, "with-protocol", false, "include the scheme in remote URLs")
	return cmd
}

func newInfoCommand(c *cli) *cobra.Command {
	var ref app.Ref
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the state and stored value of an attachment as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := c.app.Info(cmd.Context(), ref)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				State string `json:"state"`
				Value any    `json:"value"`
			}{string(info.State), info.Value})
		},
	}
	refFlags(cmd, &ref, true)
	return cmd
}

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve local storage and /metrics until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Serve(cmd.Context())
		},
	}
}
