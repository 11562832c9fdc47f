package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/assetpipe/internal/bundle"
	"github.com/conneroisu/assetpipe/internal/errors"
	"github.com/conneroisu/assetpipe/internal/isolate"
	"github.com/conneroisu/assetpipe/internal/logging"
)

// EnvironmentConfig configures an Environment.
type EnvironmentConfig struct {
	// CacheDir receives every minified bundle. It must exist.
	CacheDir string
	// Minify is the default for served groups. When false no group minifies.
	Minify bool
	// SearchRoots are candidate source directories; those that do not
	// exist are dropped and at least one must remain.
	SearchRoots []string
	// Builtins registers the javascript and css kinds.
	Builtins bool
	// BuildTimeout bounds each isolated build. Zero waits forever.
	BuildTimeout time.Duration
	// Executor runs isolated builds. Defaults to an in-process executor
	// with a digest memo.
	Executor isolate.Executor
	// Resolver supplies the request scope for RenderCurrent. Defaults to
	// ContextResolver.
	Resolver ScopeResolver
	// Logger defaults to a discarding logger.
	Logger logging.Logger
}

// AssetGroupFunc registers groups when a named asset group is loaded.
type AssetGroupFunc func(env *Environment, args ...interface{}) error

// ServeOptions are the per-call options of Serve.
type ServeOptions struct {
	// Minify overrides the environment default downward. nil keeps the default.
	Minify *bool
	// Name is an explicit cache file name.
	Name string
	// Scope defaults to GlobalScope.
	Scope string
	// SubScopes defaults to [AllSubScope].
	SubScopes []string
}

// Bool returns a pointer to b, for ServeOptions.Minify.
func Bool(b bool) *bool { return &b }

type subScopes map[string][]*FileGroup

// Environment stores file groups per type, scope and sub-scope. It is not
// safe for concurrent use.
type Environment struct {
	kinds       map[string]Kind
	cacheDir    string
	minify      bool
	searchPaths []string
	timeout     time.Duration
	executor    isolate.Executor
	resolver    ScopeResolver
	logger      logging.Logger

	// scopes[type][scope][subScope] lists groups in registration order.
	scopes map[string]map[string]subScopes
	// groups[type] lists each stored group once, in registration order.
	groups map[string][]*FileGroup
	// knownFiles[type] holds every normalized path already stored.
	knownFiles map[string]map[string]struct{}

	assetGroups map[string]AssetGroupFunc
}

// NewEnvironment validates the configuration and creates an environment.
func NewEnvironment(cfg EnvironmentConfig) (*Environment, error) {
	if !isDir(cfg.CacheDir) {
		return nil, errors.NewConfigError(errors.ErrCodeDirNotFound, "cache directory does not exist").
			WithPath(cfg.CacheDir)
	}

	searchPaths := make([]string, 0, len(cfg.SearchRoots))
	for _, root := range cfg.SearchRoots {
		if isDir(root) {
			searchPaths = append(searchPaths, root)
		}
	}
	if len(searchPaths) == 0 {
		return nil, errors.NewConfigError(errors.ErrCodeNoSearchPaths, "none of the search roots exist").
			WithContext("search_roots", cfg.SearchRoots)
	}

	if cfg.Executor == nil {
		cfg.Executor = isolate.NewInProcess(
			bundle.NewDigestCache(bundle.DefaultDigestExpiration, bundle.DefaultCleanupInterval))
	}
	if cfg.Resolver == nil {
		cfg.Resolver = ContextResolver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	env := &Environment{
		kinds:       make(map[string]Kind),
		cacheDir:    cfg.CacheDir,
		minify:      cfg.Minify,
		searchPaths: searchPaths,
		timeout:     cfg.BuildTimeout,
		executor:    cfg.Executor,
		resolver:    cfg.Resolver,
		logger:      cfg.Logger.WithComponent("assets"),
		assetGroups: make(map[string]AssetGroupFunc),
	}
	env.Reset()

	if cfg.Builtins {
		for _, tag := range []string{TypeJavaScript, TypeCSS} {
			if err := env.RegisterType(tag, BuiltinKinds()[tag]); err != nil {
				return nil, err
			}
		}
	}

	return env, nil
}

// CacheDir returns the cache directory.
func (e *Environment) CacheDir() string { return e.cacheDir }

// SearchPaths returns the existing search roots in order.
func (e *Environment) SearchPaths() []string {
	return append([]string(nil), e.searchPaths...)
}

// RegisterType makes kind available under tag. Registering a tag twice fails.
func (e *Environment) RegisterType(tag string, kind Kind) error {
	if tag == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "asset type tag is empty")
	}
	if _, exists := e.kinds[tag]; exists {
		return errors.NewConfigError(errors.ErrCodeDuplicateType,
			fmt.Sprintf("asset type %q is already registered", tag))
	}
	if kind == nil {
		return errors.NewConfigError(errors.ErrCodeNoExtension,
			fmt.Sprintf("asset type %q has no kind", tag))
	}
	if err := kind.Extension().Validate(); err != nil {
		return err
	}
	if _, ok := e.executor.(*isolate.Process); ok && e.minify && !isBuiltinKind(tag, kind) {
		return errors.NewConfigError(errors.ErrCodeIsolationInvalid,
			fmt.Sprintf("asset type %q cannot be built by worker processes, which only know the built-in kinds", tag))
	}

	e.kinds[tag] = kind
	return nil
}

func isBuiltinKind(tag string, kind Kind) bool {
	builtin, ok := BuiltinKinds()[tag]
	return ok && builtin == kind
}

// Types returns the registered type tags in sorted order.
func (e *Environment) Types() []string {
	tags := make([]string, 0, len(e.kinds))
	for tag := range e.kinds {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Kind returns the kind registered under tag.
func (e *Environment) Kind(tag string) (Kind, bool) {
	kind, ok := e.kinds[tag]
	return kind, ok
}

// Minifier returns the minifier of the kind registered under tag.
func (e *Environment) Minifier(tag string) (bundle.MinifyFunc, bool) {
	kind, ok := e.kinds[tag]
	if !ok {
		return nil, false
	}
	return kind.Minify, true
}

// RegisterAssetGroup stores a named initializer for LoadAssetGroup.
func (e *Environment) RegisterAssetGroup(name string, fn AssetGroupFunc) error {
	if _, exists := e.assetGroups[name]; exists {
		return errors.NewConfigError(errors.ErrCodeDuplicateGroup,
			fmt.Sprintf("asset group %q is already registered", name))
	}
	if fn == nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("asset group %q has no initializer", name))
	}
	e.assetGroups[name] = fn
	return nil
}

// LoadAssetGroup runs the named initializer against e. Loading twice is
// safe: files already served are dropped by Serve.
func (e *Environment) LoadAssetGroup(name string, args ...interface{}) error {
	fn, ok := e.assetGroups[name]
	if !ok {
		return errors.NewConfigError(errors.ErrCodeUnknownAssetGroup,
			fmt.Sprintf("asset group %q is not registered", name))
	}
	if err := fn(e, args...); err != nil {
		return errors.WrapConfig(err, errors.ErrCodeInitializerFailure,
			fmt.Sprintf("asset group %q failed to load", name))
	}
	return nil
}

// Serve creates a group of typ from files and stores it under the scope and
// sub-scopes in opts. Files already served for typ are dropped first; when
// none remain nothing is stored and Serve returns (nil, nil).
func (e *Environment) Serve(typ string, files []string, opts ServeOptions) (*FileGroup, error) {
	kind, ok := e.kinds[typ]
	if !ok {
		return nil, errors.NewConfigError(errors.ErrCodeUnknownType,
			fmt.Sprintf("asset type %q is not registered", typ)).
			WithContext("registered", e.Types())
	}

	minify := e.minify
	if minify && opts.Minify != nil {
		minify = *opts.Minify
	}

	scope := strings.TrimSpace(opts.Scope)
	if scope == "" {
		scope = GlobalScope
	}
	subs := uniqueSubScopes(opts.SubScopes)

	group, err := NewFileGroup(typ, kind, files, Options{
		Minify:       minify,
		Name:         opts.Name,
		SearchPaths:  e.searchPaths,
		CacheDir:     e.cacheDir,
		BuildTimeout: e.timeout,
		Executor:     e.executor,
		Logger:       e.logger,
	})
	if err != nil {
		return nil, err
	}

	known := e.knownFiles[typ]
	remaining := group.prune(func(file string) bool {
		_, seen := known[file]
		return seen
	})
	if remaining == 0 {
		e.logger.Debug(context.Background(), "Dropped group with only known files",
			"type", typ, "scope", scope, "files", len(files))
		return nil, nil
	}

	if known == nil {
		known = make(map[string]struct{})
		e.knownFiles[typ] = known
	}
	for _, file := range group.files {
		known[file] = struct{}{}
	}

	byScope := e.scopes[typ]
	if byScope == nil {
		byScope = map[string]subScopes{GlobalScope: {AllSubScope: nil}}
		e.scopes[typ] = byScope
	}
	if byScope[scope] == nil {
		byScope[scope] = subScopes{}
	}
	for _, sub := range subs {
		byScope[scope][sub] = append(byScope[scope][sub], group)
	}
	e.groups[typ] = append(e.groups[typ], group)

	e.logger.Debug(context.Background(), "Stored group",
		"type", typ, "scope", scope, "sub_scopes", subs, "files", group.files, "minify", minify)

	return group, nil
}

func uniqueSubScopes(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		out = append(out, AllSubScope)
	}
	return out
}

// Groups returns every stored group of typ in registration order.
func (e *Environment) Groups(typ string) []*FileGroup {
	return append([]*FileGroup(nil), e.groups[typ]...)
}

func (e *Environment) requireGroups(typ string) ([]*FileGroup, error) {
	groups := e.groups[typ]
	if len(groups) == 0 {
		return nil, errors.NewConfigError(errors.ErrCodeNoGroups,
			fmt.Sprintf("no groups are stored for asset type %q", typ))
	}
	return groups, nil
}

// Build builds every stored group of typ once. A failing group does not
// stop the sweep or undo groups already built; the returned error
// aggregates every failure with the first one first.
func (e *Environment) Build(ctx context.Context, typ string) error {
	groups, err := e.requireGroups(typ)
	if err != nil {
		return err
	}

	logger := e.logger.With("run_id", uuid.NewString(), "type", typ)
	op := logging.StartOperation(logger, "build")
	collector := errors.NewErrorCollector()

	for _, group := range groups {
		collector.AddError(group.Build(ctx))
	}

	if err := collector.Err(); err != nil {
		op.EndWithError(ctx, err, "groups", len(groups))
		return err
	}

	op.End(ctx, "groups", len(groups))
	logger.Info(ctx, "Built asset groups", "groups", len(groups))
	return nil
}

// Render returns the tags of typ for scope: global groups first, then the
// groups of scope's sub-scope, falling back to the scope's "all" groups.
// A zero Scope renders global groups only.
func (e *Environment) Render(ctx context.Context, typ string, scope Scope) (string, error) {
	if _, err := e.requireGroups(typ); err != nil {
		return "", err
	}

	byScope := e.scopes[typ]
	buckets := [][]*FileGroup{byScope[GlobalScope][AllSubScope]}

	if subs := byScope[scope.ID]; scope.ID != "" && len(subs) > 0 {
		sub := scope.Sub()
		if len(subs[sub]) == 0 {
			sub = AllSubScope
		}
		if !(scope.ID == GlobalScope && sub == AllSubScope) {
			buckets = append(buckets, subs[sub])
		}
	}

	var parts []string
	for _, bucket := range buckets {
		for _, group := range bucket {
			html, err := group.Render(ctx)
			if err != nil {
				return "", err
			}
			parts = append(parts, html)
		}
	}

	return strings.Join(parts, "\n"), nil
}

// RenderCurrent renders typ for the scope reported by the environment's
// ScopeResolver.
func (e *Environment) RenderCurrent(ctx context.Context, typ string) (string, error) {
	scope, ok := e.resolver.CurrentScope(ctx)
	if !ok {
		scope = Scope{}
	}
	return e.Render(ctx, typ, scope)
}

// Reset forgets every stored group and known file. Registered types and
// asset groups are kept.
func (e *Environment) Reset() {
	e.scopes = make(map[string]map[string]subScopes)
	e.groups = make(map[string][]*FileGroup)
	e.knownFiles = make(map[string]map[string]struct{})
}

// Clean removes minified bundles from the cache directory and returns the
// removed paths.
func (e *Environment) Clean() ([]string, error) {
	entries, err := os.ReadDir(e.cacheDir)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeReadCacheDir, "cannot list cache directory")
	}

	markers := make(map[string]bool, len(e.kinds))
	for _, kind := range e.kinds {
		markers[kind.Extension().Minified] = true
	}

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for marker := range markers {
			if strings.HasSuffix(entry.Name(), marker) {
				path := filepath.Join(e.cacheDir, entry.Name())
				if err := os.Remove(path); err != nil {
					return removed, errors.WrapIO(err, errors.ErrCodeRemoveCacheFile, "cannot remove cache file").WithPath(path)
				}
				removed = append(removed, path)
				break
			}
		}
	}
	sort.Strings(removed)
	return removed, nil
}
