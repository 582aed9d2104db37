package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reportwatch/internal/discovery"
	"reportwatch/internal/logging"
	"reportwatch/internal/pathresolve"
	"reportwatch/internal/search"
)

const dateFlagLayout = "2006-01-02"

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var paths []string
	var fromFlag, toFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run discovery once and list matching files without processing them",
		Long: "Run discovery against the configured search paths (or --path overrides) " +
			"and print what a run would pick up. The daemon is not contacted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			scoped := *cfg
			if len(paths) > 0 {
				scoped.Search.Paths = slices.Clone(paths)
			}
			sc, err := scoped.SearchConfig(nil)
			if err != nil {
				return err
			}

			logger := logging.NewNop()
			resolver := pathresolve.New(nil, logger)
			format, err := search.ParseDateFolderFormat(scoped.DateSearch.FolderFormat)
			if err != nil {
				return err
			}
			dirs, err := searchDirectories(resolver, sc, format, fromFlag, toFlag)
			if err != nil {
				return err
			}
			files := discovery.New(nil, logger).Discover(cmd.Context(), sc, dirs)
			slices.SortFunc(files, func(a, b discovery.File) int {
				if c := b.ModifiedAt.Compare(a.ModifiedAt); c != 0 {
					return c
				}
				return strings.Compare(a.Path, b.Path)
			})

			if asJSON {
				if files == nil {
					files = []discovery.File{}
				}
				return writeJSON(cmd, files)
			}
			stdout := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(stdout, "No matching files in %d director%s\n", len(dirs), pluralSuffix(len(dirs), "y", "ies"))
				return nil
			}
			rows := make([][]string, 0, len(files))
			for _, f := range files {
				rows = append(rows, []string{
					f.Name,
					formatBytes(f.Size),
					f.ModifiedAt.Local().Format(time.DateTime),
					f.Dir,
				})
			}
			fmt.Fprint(stdout, renderTable(
				[]string{"Name", "Size", "Modified", "Directory"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(stdout, "%d files, %s total\n", len(files), formatBytes(discovery.TotalSize(files)))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&paths, "path", nil, "Search this directory instead of the configured paths (repeatable)")
	cmd.Flags().StringVar(&fromFlag, "from", "", "First date (YYYY-MM-DD) of a date-folder range")
	cmd.Flags().StringVar(&toFlag, "to", "", "Last date (YYYY-MM-DD) of a date-folder range; defaults to --from")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// searchDirectories resolves the directories to scan. With a date range the
// format-named folders beneath each base path are used, whether or not
// date_search is enabled; otherwise the usual resolution for the effective
// date applies.
func searchDirectories(resolver *pathresolve.Resolver, sc search.Configuration, format search.DateFolderFormat, fromFlag, toFlag string) ([]string, error) {
	if strings.TrimSpace(fromFlag) == "" {
		if strings.TrimSpace(toFlag) != "" {
			return nil, errors.New("--to requires --from")
		}
		return resolver.Resolve(sc, sc.EffectiveDate(time.Now())), nil
	}
	from, err := time.ParseInLocation(dateFlagLayout, strings.TrimSpace(fromFlag), time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", fromFlag)
	}
	to := from
	if strings.TrimSpace(toFlag) != "" {
		to, err = time.ParseInLocation(dateFlagLayout, strings.TrimSpace(toFlag), time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --to %q: expected YYYY-MM-DD", toFlag)
		}
	}
	if to.Before(from) {
		return nil, fmt.Errorf("--to %s is before --from %s", toFlag, fromFlag)
	}
	var dirs []string
	for _, base := range sc.SearchPaths {
		dirs = append(dirs, resolver.FindDateFoldersInRange(search.DateTokenBase(base), format, from, to)...)
	}
	return dirs, nil
}

func pluralSuffix(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
