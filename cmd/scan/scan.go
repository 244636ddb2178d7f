/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package scan provides the scan command for tsvirt.
package scan

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/tsvirt/contenttype"
	"bennypowers.dev/tsvirt/fs"
	"bennypowers.dev/tsvirt/ingest"
	"bennypowers.dev/tsvirt/internal/output"
	"bennypowers.dev/tsvirt/locate"
	"bennypowers.dev/tsvirt/project"
	"bennypowers.dev/tsvirt/publish"
	"bennypowers.dev/tsvirt/scan"
	"bennypowers.dev/tsvirt/tsconfig"
)

// Cmd is the scan cobra command that locates project configuration for
// source contexts and republishes what it finds above them.
var Cmd = &cobra.Command{
	Use:   "scan [dir...]",
	Short: "Publish project configuration found above source contexts",
	Long: `Scan source context directories for tsconfig.json, node_modules, typings.json
and typings. Artifacts found above a context, but still inside its project, are
published under virtual paths inside the context. A republished tsconfig.json
has its sourceRoot and outDir rewritten to stay valid from its new location.

Each argument is one source context; the default is the current directory.
With several contexts, they are scanned in parallel.`,
	Example: `  # Scan the current directory
  tsvirt scan

  # Scan several contexts and print JSON
  tsvirt scan packages/a/src packages/b/src --format json

  # Treat a fixed directory as the project root
  tsvirt scan src --project .

  # Also send every published file to an ingestion service
  tsvirt scan src --ingest-url http://localhost:8080/snapshots

  # Republish Vue single-file components out of node_modules
  tsvirt scan src --content-type "**/*.vue=text/typescript"`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json, yaml)")
	Cmd.Flags().String("project", "", "Project root (default: nearest directory containing a marker)")
	Cmd.Flags().StringSlice("markers", project.DefaultMarkers, "Entries that mark a project root")
	Cmd.Flags().StringSlice("artifacts", locate.DefaultArtifacts, "Artifact names to locate")
	Cmd.Flags().StringSlice("skip", locate.DefaultSkip, "Directory names never searched inside a context")
	Cmd.Flags().String("source-type", contenttype.TypeScript, "Content type published out of artifact directories")
	Cmd.Flags().StringToString("content-type", nil, "Extra content type rules as pattern=type")
	Cmd.Flags().String("ingest-url", "", "Also POST every published file to this URL")
	Cmd.Flags().Int("cache-size", 0, "Maximum number of cached manifests (default: unbounded)")
	Cmd.Flags().IntP("jobs", "j", 0, "Number of parallel workers (default: number of CPUs)")

	_ = viper.BindPFlag("format", Cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("project", Cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("markers", Cmd.Flags().Lookup("markers"))
	_ = viper.BindPFlag("artifacts", Cmd.Flags().Lookup("artifacts"))
	_ = viper.BindPFlag("skip", Cmd.Flags().Lookup("skip"))
	_ = viper.BindPFlag("source-type", Cmd.Flags().Lookup("source-type"))
	_ = viper.BindPFlag("ingest-url", Cmd.Flags().Lookup("ingest-url"))
	_ = viper.BindPFlag("cache-size", Cmd.Flags().Lookup("cache-size"))
	_ = viper.BindPFlag("jobs", Cmd.Flags().Lookup("jobs"))
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	logger := output.NewLogger(cmd.ErrOrStderr(), viper.GetBool("verbose"))

	format := viper.GetString("format")
	switch format {
	case "text", "json", "yaml":
		// valid
	default:
		return fmt.Errorf("invalid format %q: must be one of text, json, yaml", format)
	}

	roots, err := collectRoots(args)
	if err != nil {
		return err
	}

	flagRules, err := cmd.Flags().GetStringToString("content-type")
	if err != nil {
		return fmt.Errorf("error reading content-type flag: %w", err)
	}
	// A list keeps pattern case, which viper folds in map keys.
	var configRules []contenttype.Rule
	if err := viper.UnmarshalKey("content-types", &configRules); err != nil {
		return fmt.Errorf("invalid content-types config: %w", err)
	}

	detector, err := newDetector(flagRules, configRules)
	if err != nil {
		return err
	}

	owner, err := newOwner(osfs)
	if err != nil {
		return err
	}

	store := ingest.NewStore()
	var ingester publish.Ingester = store
	if url := viper.GetString("ingest-url"); url != "" {
		ingester = ingest.Multi(store, ingest.NewHTTPClient(url))
	}

	scanner := scan.New(osfs, owner, ingester, logger).
		WithArtifacts(viper.GetStringSlice("artifacts")).
		WithSkip(viper.GetStringSlice("skip")).
		WithDetector(detector).
		WithSourceType(viper.GetString("source-type"))

	if size := viper.GetInt("cache-size"); size > 0 {
		cache, err := tsconfig.NewLRUCache(size)
		if err != nil {
			return fmt.Errorf("invalid cache size: %w", err)
		}
		scanner = scanner.WithCache(cache)
	}

	index := make(map[string]int, len(roots))
	for i, root := range roots {
		index[root] = i
	}

	results := make([]*scan.Result, len(roots))
	failed := 0
	for r := range scanner.ScanBatch(cmd.Context(), roots, viper.GetInt("jobs")) {
		results[index[r.Root]] = r.Result
		if r.Err != nil {
			failed++
			logger.Error("%v", r.Err)
		}
	}

	data, err := render(format, results, store)
	if err != nil {
		return err
	}
	if err := output.Write(osfs, data); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d contexts failed to scan", failed, len(roots))
	}
	return nil
}

// collectRoots resolves the context arguments to absolute paths,
// deduplicated, in argument order.
func collectRoots(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	seen := make(map[string]struct{})
	var roots []string
	for _, arg := range args {
		absPath, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid context path %q: %w", arg, err)
		}
		if _, exists := seen[absPath]; !exists {
			seen[absPath] = struct{}{}
			roots = append(roots, absPath)
		}
	}
	return roots, nil
}

// newDetector builds the content type detector. Flag rules, ordered by
// pattern, take precedence over config file rules, which keep their order.
func newDetector(flagRules map[string]string, configRules []contenttype.Rule) (*contenttype.PatternDetector, error) {
	rules := make([]contenttype.Rule, 0, len(flagRules)+len(configRules))
	for _, pattern := range slices.Sorted(maps.Keys(flagRules)) {
		rules = append(rules, contenttype.Rule{Pattern: pattern, Type: flagRules[pattern]})
	}
	rules = append(rules, configRules...)
	detector, err := contenttype.NewPatternDetector(rules...)
	if err != nil {
		return nil, fmt.Errorf("invalid content type rules: %w", err)
	}
	return detector, nil
}

func newOwner(osfs fs.FileSystem) (project.Owner, error) {
	if root := viper.GetString("project"); root != "" {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("invalid project directory: %w", err)
		}
		return project.FixedOwner{Root: absRoot}, nil
	}
	return project.NewMarkerOwner(osfs, viper.GetStringSlice("markers")...), nil
}
