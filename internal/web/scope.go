// Package web connects asset rendering to chi routing. Its middleware
// derives the asset scope of a request from the matched route and stores
// it in the request context, where assets.ContextResolver finds it.
package web

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/conneroisu/assetpipe/internal/assets"
)

// Default URL parameter names read by URLParamScope.
const (
	ControllerParam = "controller"
	ActionParam     = "action"
)

// ScopeFunc derives the asset scope of a routed request.
type ScopeFunc func(r *http.Request) (assets.Scope, bool)

// Middleware stores the scope reported by resolve in the request context.
// It must run after routing, so register it with chi's With or Use inside
// a Group, not with Use on a router or sub-router.
func Middleware(resolve ScopeFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if scope, ok := resolve(r); ok {
				r = r.WithContext(assets.WithScope(r.Context(), scope))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Scoped pins every request of a route to a fixed scope and sub-scope.
func Scoped(id, sub string) func(http.Handler) http.Handler {
	return Middleware(func(*http.Request) (assets.Scope, bool) {
		return assets.Scope{ID: id, SubID: sub}, id != ""
	})
}

// URLParamScope reads the scope and sub-scope from chi URL parameters. A
// missing sub-scope parameter leaves the sub-scope empty, which renders
// as "all".
func URLParamScope(scopeParam, subParam string) ScopeFunc {
	return func(r *http.Request) (assets.Scope, bool) {
		id := chi.URLParam(r, scopeParam)
		if id == "" {
			return assets.Scope{}, false
		}
		return assets.Scope{ID: id, SubID: chi.URLParam(r, subParam)}, true
	}
}

// RoutePatternScope derives the scope from the matched route pattern: the
// first static segment is the scope and the last static segment after it,
// if any, is the sub-scope. "/users/{id}/edit" yields (users, edit) and
// "/users" yields (users, all).
func RoutePatternScope(r *http.Request) (assets.Scope, bool) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return assets.Scope{}, false
	}

	var static []string
	for _, segment := range strings.Split(rctx.RoutePattern(), "/") {
		if segment == "" || segment == "*" || strings.HasPrefix(segment, "{") {
			continue
		}
		static = append(static, segment)
	}

	switch len(static) {
	case 0:
		return assets.Scope{}, false
	case 1:
		return assets.Scope{ID: static[0]}, true
	default:
		return assets.Scope{ID: static[0], SubID: static[len(static)-1]}, true
	}
}

// Renderer renders the tags of one asset type for the request scope.
type Renderer interface {
	RenderCurrent(ctx context.Context, typ string) (string, error)
}

// Tags returns a templ component that renders the tags of typ for the
// scope of the request being rendered.
func Tags(env Renderer, typ string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		html, err := env.RenderCurrent(ctx, typ)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	})
}
