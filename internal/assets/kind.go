package assets

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/assetpipe/internal/bundle"
	"github.com/conneroisu/assetpipe/internal/errors"
	"github.com/conneroisu/assetpipe/internal/minify"
)

// Type tags of the built-in kinds.
const (
	TypeJavaScript = "javascript"
	TypeCSS        = "css"
)

// Extension is the pair of file extensions used by a kind: the extension of
// its source files and the one appended to minified cache files. Separator
// joins consecutive minified sources in a bundle; empty means a newline.
type Extension struct {
	Source    string
	Minified  string
	Separator string
}

// Validate reports whether both extensions are usable.
func (e Extension) Validate() error {
	if e.Source == "" || e.Minified == "" {
		return errors.NewConfigError(errors.ErrCodeNoExtension, "asset kind has no source/minified extension pair")
	}
	if strings.Contains(e.Source, "/") || strings.Contains(e.Minified, "/") {
		return errors.NewConfigError(errors.ErrCodeNoExtension,
			fmt.Sprintf("extensions %q/%q must not contain a slash", e.Source, e.Minified))
	}
	return nil
}

// Kind supplies the per-type behavior of a FileGroup: which extensions its
// files use, how to minify them and how to reference them from HTML.
type Kind interface {
	Extension() Extension
	Minify(src string) (string, error)
	Tag(path string) (templ.Component, error)
}

// BaseKind only knows its extensions. Minify and Tag fail with a
// not-implemented error; embed it and override both to get a usable kind.
type BaseKind struct {
	Ext Extension
}

// Extension implements Kind.
func (k BaseKind) Extension() Extension { return k.Ext }

// Minify implements Kind.
func (k BaseKind) Minify(string) (string, error) {
	return "", errors.NewNotImplementedError(errors.ErrCodeMinifyMissing,
		fmt.Sprintf("asset kind %s has no minifier", k.Ext.Source))
}

// Tag implements Kind.
func (k BaseKind) Tag(string) (templ.Component, error) {
	return nil, errors.NewNotImplementedError(errors.ErrCodeTagMissing,
		fmt.Sprintf("asset kind %s cannot render HTML tags", k.Ext.Source))
}

// TagFunc builds the HTML component referencing one asset path.
type TagFunc func(path string) templ.Component

type funcKind struct {
	BaseKind
	minify minify.Func
	tag    TagFunc
}

// NewKind assembles a kind from its parts. A nil minifier or tag function
// leaves that capability unimplemented.
func NewKind(ext Extension, m minify.Func, tag TagFunc) Kind {
	return &funcKind{BaseKind: BaseKind{Ext: ext}, minify: m, tag: tag}
}

func (k *funcKind) Minify(src string) (string, error) {
	if k.minify == nil {
		return k.BaseKind.Minify(src)
	}
	return k.minify(src)
}

func (k *funcKind) Tag(path string) (templ.Component, error) {
	if k.tag == nil {
		return k.BaseKind.Tag(path)
	}
	return k.tag(path), nil
}

// ScriptTag renders <script type="text/javascript" src="path"></script>.
func ScriptTag(path string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<script type="text/javascript" src="`+templ.EscapeString(path)+`"></script>`)
		return err
	})
}

// StylesheetTag renders <link rel="stylesheet" type="text/css" href="path" />.
func StylesheetTag(path string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<link rel="stylesheet" type="text/css" href="`+templ.EscapeString(path)+`" />`)
		return err
	})
}

var (
	// JavaScript is the built-in kind for .js files.
	JavaScript = NewKind(Extension{Source: ".js", Minified: ".min.js", Separator: ";\n"}, minify.JavaScript, ScriptTag)
	// CSS is the built-in kind for .css files.
	CSS = NewKind(Extension{Source: ".css", Minified: ".min.css", Separator: "\n"}, minify.CSS, StylesheetTag)
)

// BuiltinKinds returns the built-in kinds keyed by their type tag.
func BuiltinKinds() map[string]Kind {
	return map[string]Kind{
		TypeJavaScript: JavaScript,
		TypeCSS:        CSS,
	}
}

// BuiltinMinifier resolves the minifier of a built-in kind. Worker
// processes use it to serve jobs without an Environment.
func BuiltinMinifier(typ string) (bundle.MinifyFunc, bool) {
	kind, ok := BuiltinKinds()[typ]
	if !ok {
		return nil, false
	}
	return kind.Minify, true
}
