package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetpipe/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild bundles when their sources change",
	Long: `Watch builds every declared asset type once, then watches the search
roots and rebuilds a type whenever one of its source files changes.

Examples:
  assetpipe watch                     # Watch with the default debounce
  assetpipe watch --debounce 1s       # Wait longer for bursts of changes`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Quiet period before a rebuild")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := loadApp(ctx, true, true)
	if err != nil {
		return err
	}

	fileWatcher, err := newAssetWatcher(ctx, a, watchDebounce)
	if err != nil {
		return err
	}
	defer fileWatcher.Stop()

	for _, typ := range a.servedTypes() {
		if err := a.env.Build(ctx, typ); err != nil {
			a.logger.Error(ctx, err, "Initial build failed", "type", typ)
		}
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes. Press Ctrl+C to stop.")

	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "Stopping watcher")
	return nil
}

// newAssetWatcher watches every search root and rebuilds the type whose
// source extension matches a changed file. Bundles in the cache directory
// and temporary files are ignored.
func newAssetWatcher(ctx context.Context, a *app, debounce time.Duration) (*watcher.FileWatcher, error) {
	fileWatcher, err := watcher.NewFileWatcher(debounce, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	sources := make(map[string]string)
	var exts, markers []string
	for _, typ := range a.env.Types() {
		kind, _ := a.env.Kind(typ)
		ext := kind.Extension()
		sources[ext.Source] = typ
		exts = append(exts, ext.Source)
		markers = append(markers, ext.Minified)
	}

	fileWatcher.AddFilter(watcher.ExtensionFilter(exts...))
	fileWatcher.AddFilter(watcher.NoMinifiedFilter(markers...))
	fileWatcher.AddFilter(watcher.NoHiddenFilter)
	fileWatcher.AddFilter(watcher.NoDirFilter(a.env.CacheDir()))
	fileWatcher.AddHandler(watcher.BuildHandler(ctx, a.env, sources, a.logger))

	for _, root := range a.env.SearchPaths() {
		if err := fileWatcher.AddRecursive(root); err != nil {
			fileWatcher.Stop()
			return nil, fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	return fileWatcher, nil
}
