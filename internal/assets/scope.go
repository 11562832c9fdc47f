package assets

import "context"

const (
	// GlobalScope holds groups rendered on every page.
	GlobalScope = "global"
	// AllSubScope holds groups rendered for every sub-scope of a scope.
	AllSubScope = "all"
)

// Scope identifies where a group is rendered, typically a controller (ID)
// and one of its actions (SubID). An empty SubID means AllSubScope.
type Scope struct {
	ID    string
	SubID string
}

// Sub returns the effective sub-scope id.
func (s Scope) Sub() string {
	if s.SubID == "" {
		return AllSubScope
	}
	return s.SubID
}

// ScopeResolver reports the scope of the request being served. ok is false
// when no request context is available, in which case only global groups
// are rendered.
type ScopeResolver interface {
	CurrentScope(ctx context.Context) (scope Scope, ok bool)
}

// ScopeResolverFunc adapts a function to ScopeResolver.
type ScopeResolverFunc func(ctx context.Context) (Scope, bool)

// CurrentScope implements ScopeResolver.
func (f ScopeResolverFunc) CurrentScope(ctx context.Context) (Scope, bool) {
	return f(ctx)
}

type scopeKey struct{}

// WithScope stores the current request scope in ctx.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the scope stored by WithScope.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	scope, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok || scope.ID == "" {
		return Scope{}, false
	}
	return scope, true
}

// ContextResolver resolves the scope stored in the context by WithScope.
type ContextResolver struct{}

// CurrentScope implements ScopeResolver.
func (ContextResolver) CurrentScope(ctx context.Context) (Scope, bool) {
	return ScopeFromContext(ctx)
}
