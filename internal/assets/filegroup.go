// Package assets groups JavaScript, CSS and other text assets, builds
// minified bundles of them in an isolated failure domain and renders the
// HTML tags that reference either the bundle or the original files.
//
// A FileGroup is one set of same-kind files plus build options. An
// Environment stores groups per type, scope and sub-scope, drops files
// that an earlier group already registered, builds every group of a type
// and renders the tags for the scope of the current request.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/assetpipe/internal/bundle"
	"github.com/conneroisu/assetpipe/internal/errors"
	"github.com/conneroisu/assetpipe/internal/isolate"
	"github.com/conneroisu/assetpipe/internal/logging"
)

var repeatedSlashes = regexp.MustCompile(`/{2,}`)

// Options configures a FileGroup.
type Options struct {
	// Minify enables building a single minified cache file.
	Minify bool
	// Name is the cache file name. Derived from the file list when empty
	// and Minify is set.
	Name string
	// SearchPaths are scanned in order for each file; first match wins.
	SearchPaths []string
	// CacheDir receives the minified output. It must exist.
	CacheDir string
	// BuildTimeout bounds one isolated build. Zero waits forever.
	BuildTimeout time.Duration
	// Executor runs the isolated build. Defaults to an in-process executor.
	Executor isolate.Executor
	// Logger defaults to a discarding logger.
	Logger logging.Logger
}

// FileGroup is a set of same-kind files that are built and rendered as a unit.
type FileGroup struct {
	typ     string
	kind    Kind
	ext     Extension
	files   []string
	options Options
	built   bool
}

// NewFileGroup validates the options, normalizes every file path and, for
// minified groups, resolves the cache file name. typ is the type tag the
// kind is registered under; worker processes use it to pick a minifier.
func NewFileGroup(typ string, kind Kind, files []string, opts Options) (*FileGroup, error) {
	if kind == nil {
		return nil, errors.NewConfigError(errors.ErrCodeNoExtension, "file group has no asset kind")
	}
	ext := kind.Extension()
	if err := ext.Validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.NewConfigError(errors.ErrCodeNoFiles, "file group needs at least one file")
	}
	if len(opts.SearchPaths) == 0 {
		return nil, errors.NewConfigError(errors.ErrCodeNoSearchPaths, "file group needs at least one search path")
	}
	if !isDir(opts.CacheDir) {
		return nil, errors.NewConfigError(errors.ErrCodeDirNotFound, "cache directory does not exist").
			WithPath(opts.CacheDir)
	}
	if opts.Executor == nil {
		opts.Executor = isolate.NewInProcess(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	opts.SearchPaths = append([]string(nil), opts.SearchPaths...)

	normalized := make([]string, len(files))
	for i, file := range files {
		normalized[i] = NormalizePath(file, ext)
	}

	if opts.Minify && opts.Name == "" {
		opts.Name = DeriveName(normalized)
	}
	if opts.Name != "" && !strings.HasSuffix(opts.Name, ext.Minified) {
		opts.Name += ext.Minified
	}

	return &FileGroup{
		typ:     typ,
		kind:    kind,
		ext:     ext,
		files:   normalized,
		options: opts,
	}, nil
}

// NormalizePath appends the source extension when missing, roots the path
// at "/" and collapses repeated slashes. It is idempotent.
func NormalizePath(path string, ext Extension) string {
	if !strings.HasSuffix(path, ext.Source) {
		path += ext.Source
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return repeatedSlashes.ReplaceAllString(path, "/")
}

// DeriveName returns the hex SHA-256 digest of the concatenated file list.
// The digest depends on file order.
func DeriveName(files []string) string {
	sum := sha256.Sum256([]byte(strings.Join(files, "")))
	return hex.EncodeToString(sum[:])
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Type returns the type tag the group was created for.
func (g *FileGroup) Type() string { return g.typ }

// Files returns a copy of the normalized file list.
func (g *FileGroup) Files() []string {
	return append([]string(nil), g.files...)
}

// Name returns the resolved cache file name, empty for unminified groups
// without an explicit name.
func (g *FileGroup) Name() string { return g.options.Name }

// Minify reports whether the group builds a minified bundle.
func (g *FileGroup) Minify() bool { return g.options.Minify }

// Built reports whether a build completed successfully in this process.
func (g *FileGroup) Built() bool { return g.built }

// CachePath returns the location of the minified bundle on disk.
func (g *FileGroup) CachePath() string {
	return filepath.Join(g.options.CacheDir, g.options.Name)
}

// prune drops every file for which known returns true and reports how many
// files remain.
func (g *FileGroup) prune(known func(string) bool) int {
	kept := g.files[:0]
	for _, file := range g.files {
		if !known(file) {
			kept = append(kept, file)
		}
	}
	g.files = kept
	return len(g.files)
}

// ResolveSources locates the group's files on disk. Search paths are the
// outer loop: every match in the first search path comes before any match
// in the second. A file is taken from the first search path containing it
// and files found nowhere are skipped.
func (g *FileGroup) ResolveSources() []string {
	resolved := make([]string, 0, len(g.files))
	taken := make(map[string]bool, len(g.files))

	for _, searchPath := range g.options.SearchPaths {
		for _, file := range g.files {
			if taken[file] {
				continue
			}
			candidate := filepath.Join(searchPath, filepath.FromSlash(file))
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			taken[file] = true
			resolved = append(resolved, candidate)
		}
	}

	return resolved
}

// Build minifies and concatenates the group's files into its cache file.
// It is a no-op for groups that do not minify. The work runs in the
// configured executor's failure domain and Build blocks until it ends.
func (g *FileGroup) Build(ctx context.Context) error {
	if !g.options.Minify {
		return nil
	}

	logger := g.options.Logger.With("type", g.typ, "name", g.options.Name)
	op := logging.StartOperation(logger, "build_group")

	if g.options.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.options.BuildTimeout)
		defer cancel()
	}

	target := g.CachePath()
	job := bundle.Job{
		Type:      g.typ,
		Sources:   g.ResolveSources(),
		Target:    target,
		Separator: g.ext.Separator,
	}

	result, err := g.options.Executor.Execute(ctx, job, g.kind.Minify)
	if err != nil {
		err = errors.WrapBuild(err, errors.ErrCodeBuildFailed, "isolated build failed", target)
		op.EndWithError(ctx, err)
		return err
	}

	if _, statErr := os.Stat(target); statErr != nil {
		err = errors.NewBuildError(errors.ErrCodeCacheFileMissing, "cache file missing after build", statErr).
			WithPath(target)
		op.EndWithError(ctx, err)
		return err
	}

	g.built = true
	op.End(ctx, "sources", len(job.Sources), "written", result.Written, "bytes", result.Bytes)

	return nil
}

// Component returns a templ component rendering the group's tags: one tag
// for the bundle once the group is built, otherwise one per file.
func (g *FileGroup) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		paths := g.files
		if g.options.Minify && g.built {
			paths = []string{repeatedSlashes.ReplaceAllString("/"+g.options.Name, "/")}
		}

		for i, path := range paths {
			tag, err := g.kind.Tag(path)
			if err != nil {
				return err
			}
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if err := tag.Render(ctx, w); err != nil {
				return fmt.Errorf("render tag for %s: %w", path, err)
			}
		}

		return nil
	})
}

// Render returns the group's tags as a string.
func (g *FileGroup) Render(ctx context.Context) (string, error) {
	var sb strings.Builder
	if err := g.Component().Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
