package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/stash/internal/app"
	"github.com/MrSnakeDoc/stash/internal/sources/homepage"
)

func newImportCmd() *cobra.Command {
	var (
		owner   string
		file    string
		extract bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a Homepage bookmarks.yaml into an owner's collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := setup()
			defer func() { _ = log.Sync() }()

			config, err := homepage.NewBookmarkLoader(file).Load()
			if err != nil {
				return err
			}
			entries, err := homepage.MapBookmarks(config)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			var ex homepage.Extractor
			if extract {
				ex = a.Extractor()
			}

			rep, err := homepage.NewImporter(a.Bookmarks(), ex, log).Import(cmd.Context(), owner, entries)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved=%d skipped=%d failed=%d extracted=%d\n",
				rep.Saved, rep.Skipped, rep.Failed, rep.Extracted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Owner id the bookmarks belong to (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to bookmarks.yaml (required)")
	cmd.Flags().BoolVar(&extract, "extract", false, "Fetch each page and prefer its live metadata")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
