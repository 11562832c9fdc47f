// Package minify provides the built-in minifiers for JavaScript and CSS.
//
// Minifiers are pure functions of their input: the same source always
// produces the same output, which is what lets the build step compare
// digests of freshly minified content against an existing cache file.
package minify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/css/scanner"
	tdminify "github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
)

// Func minifies one source text.
type Func func(src string) (string, error)

const mediaTypeJS = "application/javascript"

var (
	jsOnce     sync.Once
	jsMinifier *tdminify.M
)

func jsM() *tdminify.M {
	jsOnce.Do(func() {
		jsMinifier = tdminify.New()
		jsMinifier.AddFunc(mediaTypeJS, js.Minify)
	})
	return jsMinifier
}

// JavaScript minifies JavaScript source.
func JavaScript(src string) (string, error) {
	out, err := jsM().String(mediaTypeJS, src)
	if err != nil {
		return "", fmt.Errorf("minify javascript: %w", err)
	}
	return out, nil
}

// No whitespace is needed after these characters...
const tightAfter = "{};,>:("

// ...or before these.
const tightBefore = "{};,>)"

// CSS minifies a stylesheet by dropping comments and collapsing whitespace
// to the single spaces that are significant between tokens.
func CSS(src string) (string, error) {
	s := scanner.New(src)
	var out []byte
	pendingSpace := false

	for {
		tok := s.Next()
		switch tok.Type {
		case scanner.TokenEOF:
			return strings.TrimSpace(string(out)), nil
		case scanner.TokenError:
			return "", fmt.Errorf("minify css: line %d column %d: invalid token %q", tok.Line, tok.Column, tok.Value)
		case scanner.TokenBOM, scanner.TokenCDO, scanner.TokenCDC:
			continue
		case scanner.TokenS, scanner.TokenComment:
			// A comment separates tokens like whitespace does.
			pendingSpace = true
			continue
		}

		value := tok.Value
		if value == "" {
			continue
		}

		if value == "}" && len(out) > 0 && out[len(out)-1] == ';' {
			out = out[:len(out)-1]
		}

		if pendingSpace && len(out) > 0 &&
			!strings.ContainsRune(tightAfter, rune(out[len(out)-1])) &&
			!strings.ContainsRune(tightBefore, rune(value[0])) {
			out = append(out, ' ')
		}
		pendingSpace = false

		out = append(out, value...)
	}
}
