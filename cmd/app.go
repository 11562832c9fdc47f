package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetpipe/internal/assets"
	"github.com/conneroisu/assetpipe/internal/bundle"
	"github.com/conneroisu/assetpipe/internal/config"
	"github.com/conneroisu/assetpipe/internal/errors"
	"github.com/conneroisu/assetpipe/internal/isolate"
	"github.com/conneroisu/assetpipe/internal/logging"
	"github.com/conneroisu/assetpipe/internal/manifest"
)

// app bundles what every asset command needs.
type app struct {
	cfg    *config.Config
	logger logging.Logger
	env    *assets.Environment
}

// commandContext returns the command's context, or a background context
// when the command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newLogger builds the CLI logger from the log section of cfg.
func newLogger(cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		Component: "assetpipe",
	}), nil
}

// newExecutor maps the configured isolation mode to an executor.
func newExecutor(cfg *config.Config) (isolate.Executor, error) {
	cache := bundle.NewDigestCache(bundle.DefaultDigestExpiration, bundle.DefaultCleanupInterval)
	executor, err := isolate.New(cfg.Assets.Isolation, cache, isolate.NewProcess())
	if err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeIsolationInvalid, "invalid isolation mode")
	}
	return executor, nil
}

// loadApp loads the configuration, creates the environment and applies
// the manifest. With createCacheDir the cache directory is created first.
// A missing manifest is only an error when requireManifest is set.
func loadApp(ctx context.Context, createCacheDir, requireManifest bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	if createCacheDir {
		if err := os.MkdirAll(cfg.Assets.CacheDir, 0755); err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeDirNotFound, "cannot create cache directory").
				WithPath(cfg.Assets.CacheDir)
		}
	}

	executor, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}

	env, err := assets.NewEnvironment(assets.EnvironmentConfig{
		CacheDir:     cfg.Assets.CacheDir,
		Minify:       cfg.Assets.Minify,
		SearchRoots:  cfg.Assets.SearchRoots,
		Builtins:     true,
		BuildTimeout: cfg.Assets.BuildTimeout,
		Executor:     executor,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(cfg.Assets.Manifest)
	switch {
	case err == nil:
		if err := m.Apply(env); err != nil {
			return nil, err
		}
		logger.Debug(ctx, "Applied manifest", "path", cfg.Assets.Manifest, "types", m.Types())
	case errors.Is(err, os.ErrNotExist) && !requireManifest:
		logger.Debug(ctx, "No manifest found", "path", cfg.Assets.Manifest)
	default:
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, env: env}, nil
}

// servedTypes returns the registered types that have at least one group.
func (a *app) servedTypes() []string {
	var types []string
	for _, typ := range a.env.Types() {
		if len(a.env.Groups(typ)) > 0 {
			types = append(types, typ)
		}
	}
	return types
}
