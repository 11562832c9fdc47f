package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetpipe/internal/bundle"
	"github.com/conneroisu/assetpipe/internal/errors"
)

// Test fixtures and helper functions

type fixture struct {
	root     string
	public   string
	cacheDir string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		root:     root,
		public:   filepath.Join(root, "public"),
		cacheDir: filepath.Join(root, "public", "minified"),
	}
	require.NoError(t, os.MkdirAll(f.cacheDir, 0755))
	return f
}

func createTestFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func (f fixture) options(minify bool) Options {
	return Options{
		Minify:      minify,
		SearchPaths: []string{f.public},
		CacheDir:    f.cacheDir,
	}
}

type fakeExecutor struct {
	calls int
	jobs  []bundle.Job
	err   error
	write bool
}

func (e *fakeExecutor) Execute(_ context.Context, job bundle.Job, _ bundle.MinifyFunc) (bundle.Result, error) {
	e.calls++
	e.jobs = append(e.jobs, job)
	if e.write {
		if err := os.WriteFile(job.Target, []byte("x"), 0644); err != nil {
			return bundle.Result{}, err
		}
	}
	return bundle.Result{Written: e.write}, e.err
}

func TestNormalizePath(t *testing.T) {
	js := JavaScript.Extension()
	testCases := []struct {
		input    string
		expected string
	}{
		{"js/app", "/js/app.js"},
		{"/js/app.js", "/js/app.js"},
		{"//js///app", "/js/app.js"},
		{"js/jquery.min", "/js/jquery.min.js"},
		{"app.coffee", "/app.coffee.js"},
		{"", "/.js"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizePath(tc.input, js))
			assert.Equal(t, tc.expected, NormalizePath(NormalizePath(tc.input, js), js))
		})
	}
}

func TestNewFileGroupValidation(t *testing.T) {
	f := newFixture(t)

	testCases := []struct {
		name  string
		kind  Kind
		files []string
		opts  Options
	}{
		{"no search paths", JavaScript, []string{"a"}, Options{CacheDir: f.cacheDir}},
		{"missing cache dir", JavaScript, []string{"a"}, Options{SearchPaths: []string{f.public}, CacheDir: filepath.Join(f.root, "nope")}},
		{"cache dir is a file", JavaScript, []string{"a"}, Options{SearchPaths: []string{f.public}, CacheDir: "/dev/null"}},
		{"no files", JavaScript, nil, f.options(false)},
		{"no kind", nil, []string{"a"}, f.options(false)},
		{"no extension", BaseKind{}, []string{"a"}, f.options(false)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			group, err := NewFileGroup("javascript", tc.kind, tc.files, tc.opts)
			assert.Nil(t, group)
			assert.True(t, errors.IsConfigError(err), "expected config error, got %v", err)
		})
	}
}

func TestNewFileGroupKeepsOrderAndDuplicates(t *testing.T) {
	f := newFixture(t)

	group, err := NewFileGroup(TypeJavaScript, JavaScript, []string{"b", "a", "b"}, f.options(false))
	require.NoError(t, err)

	assert.Equal(t, []string{"/b.js", "/a.js", "/b.js"}, group.Files())
	assert.Empty(t, group.Name())
	assert.False(t, group.Minify())
	assert.Equal(t, TypeJavaScript, group.Type())
}

func TestNameDerivation(t *testing.T) {
	f := newFixture(t)

	group, err := NewFileGroup(TypeCSS, CSS, []string{"/css/a.css", "/css/b.css"}, f.options(true))
	require.NoError(t, err)

	expected := DeriveName([]string{"/css/a.css", "/css/b.css"}) + ".min.css"
	assert.Equal(t, expected, group.Name())
	assert.Equal(t, filepath.Join(f.cacheDir, expected), group.CachePath())

	again, err := NewFileGroup(TypeCSS, CSS, []string{"css/a", "css/b"}, f.options(true))
	require.NoError(t, err)
	assert.Equal(t, group.Name(), again.Name())

	reversed, err := NewFileGroup(TypeCSS, CSS, []string{"/css/b.css", "/css/a.css"}, f.options(true))
	require.NoError(t, err)
	assert.NotEqual(t, group.Name(), reversed.Name())
}

func TestExplicitNameSuffixAppendedOnce(t *testing.T) {
	f := newFixture(t)

	opts := f.options(true)
	opts.Name = "site"
	group, err := NewFileGroup(TypeJavaScript, JavaScript, []string{"a"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "site.min.js", group.Name())

	opts.Name = "site.min.js"
	group, err = NewFileGroup(TypeJavaScript, JavaScript, []string{"a"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "site.min.js", group.Name())
}

func TestRenderSwitchesAfterBuild(t *testing.T) {
	f := newFixture(t)
	createTestFile(t, filepath.Join(f.public, "css", "a.css"), "a { color: red; }\n")
	createTestFile(t, filepath.Join(f.public, "css", "b.css"), "b { color: blue; }\n")
	ctx := context.Background()

	group, err := NewFileGroup(TypeCSS, CSS, []string{"/css/a.css", "/css/b.css"}, f.options(true))
	require.NoError(t, err)

	before, err := group.Render(ctx)
	require.NoError(t, err)
	assert.Equal(t,
		`<link rel="stylesheet" type="text/css" href="/css/a.css" />`+"\n"+
			`<link rel="stylesheet" type="text/css" href="/css/b.css" />`,
		before)

	require.NoError(t, group.Build(ctx))
	assert.True(t, group.Built())

	after, err := group.Render(ctx)
	require.NoError(t, err)
	assert.Equal(t, `<link rel="stylesheet" type="text/css" href="/`+group.Name()+`" />`, after)

	content, err := os.ReadFile(group.CachePath())
	require.NoError(t, err)
	assert.Equal(t, "a{color:red}\nb{color:blue}", string(content))
}

func TestBuildJavaScriptKeepsStatementsApart(t *testing.T) {
	f := newFixture(t)
	createTestFile(t, filepath.Join(f.public, "js", "a.js"), "var a = 1;\n")
	createTestFile(t, filepath.Join(f.public, "js", "b.js"), "(function () { console.log(a); })();\n")

	group, err := NewFileGroup(TypeJavaScript, JavaScript, []string{"/js/a.js", "/js/b.js"}, f.options(true))
	require.NoError(t, err)
	require.NoError(t, group.Build(context.Background()))

	content, err := os.ReadFile(group.CachePath())
	require.NoError(t, err)
	assert.Equal(t, "var a=1;\n(function(){console.log(a)})()", string(content))
}

func TestBuildWithoutMinifyIsNoop(t *testing.T) {
	f := newFixture(t)
	exec := &fakeExecutor{write: true}
	opts := f.options(false)
	opts.Executor = exec

	group, err := NewFileGroup(TypeJavaScript, JavaScript, []string{"a"}, opts)
	require.NoError(t, err)

	require.NoError(t, group.Build(context.Background()))
	assert.False(t, group.Built())
	assert.Zero(t, exec.calls)

	html, err := group.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `<script type="text/javascript" src="/a.js"></script>`, html)
}

func TestResolveSourcesSearchPathMajorOrder(t *testing.T) {
	f := newFixture(t)
	vendor := filepath.Join(f.root, "vendor")
	createTestFile(t, filepath.Join(f.public, "js", "b.js"), "b")
	createTestFile(t, filepath.Join(vendor, "js", "a.js"), "a")
	createTestFile(t, filepath.Join(vendor, "js", "b.js"), "shadowed")
	createTestFile(t, filepath.Join(vendor, "js", "c.js"), "c")

	opts := f.options(true)
	opts.SearchPaths = []string{f.public, vendor}
	group, err := NewFileGroup(TypeJavaScript, JavaScript, []string{"js/a", "js/b", "js/missing", "js/c"}, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(f.public, "js", "b.js"),
		filepath.Join(vendor, "js", "a.js"),
		filepath.Join(vendor, "js", "c.js"),
	}, group.ResolveSources())
}

func TestBuildIsIdempotent(t *testing.T) {
	f := newFixture(t)
	createTestFile(t, filepath.Join(f.public, "js", "app.js"), "var answer = 42;\n")
	ctx := context.Background()

	group, err := NewFileGroup(TypeJavaScript, JavaScript, []string{"js/app"}, f.options(true))
	require.NoError(t, err)

	require.NoError(t, group.Build(ctx))
	first, err := os.Stat(group.CachePath())
	require.NoError(t, err)

	// Backdate the file so a rewrite would be visible.
	old := first.ModTime().Add(-time.Hour)
	require.NoError(t, os.Chtimes(group.CachePath(), old, old))

	require.NoError(t, group.Build(ctx))
	second, err := os.Stat(group.CachePath())
	require.NoError(t, err)
	assert.True(t, second.ModTime().Equal(old), "unchanged bundle must not be rewritten")
}

func TestBuildFailsWhenCacheFileMissing(t *testing.T) {
	f := newFixture(t)
	opts := f.options(true)
	opts.Executor = &fakeExecutor{}

	group, err := NewFileGroup(TypeJavaScript, JavaScript, []string{"a"}, opts)
	require.NoError(t, err)

	err = group.Build(context.Background())
	assert.True(t, errors.IsBuildError(err))
	assert.ErrorIs(t, err, errors.NewBuildError(errors.ErrCodeCacheFileMissing, "", nil))
	assert.False(t, group.Built())
}

func TestBuildFailsWhenExecutorFails(t *testing.T) {
	f := newFixture(t)
	opts := f.options(true)
	opts.Executor = &fakeExecutor{err: fmt.Errorf("worker killed")}

	group, err := NewFileGroup(TypeJavaScript, JavaScript, []string{"a"}, opts)
	require.NoError(t, err)

	err = group.Build(context.Background())
	assert.True(t, errors.IsBuildError(err))
	assert.ErrorContains(t, err, "worker killed")
	assert.False(t, group.Built())
}

func TestBuildPassesJobToExecutor(t *testing.T) {
	f := newFixture(t)
	createTestFile(t, filepath.Join(f.public, "a.js"), "a")
	exec := &fakeExecutor{write: true}
	opts := f.options(true)
	opts.Executor = exec

	group, err := NewFileGroup(TypeJavaScript, JavaScript, []string{"a", "b"}, opts)
	require.NoError(t, err)
	require.NoError(t, group.Build(context.Background()))

	require.Len(t, exec.jobs, 1)
	assert.Equal(t, TypeJavaScript, exec.jobs[0].Type)
	assert.Equal(t, []string{filepath.Join(f.public, "a.js")}, exec.jobs[0].Sources)
	assert.Equal(t, group.CachePath(), exec.jobs[0].Target)
}

func TestBuildTimeout(t *testing.T) {
	f := newFixture(t)
	createTestFile(t, filepath.Join(f.public, "a.js"), "a")
	slow := NewKind(Extension{Source: ".js", Minified: ".min.js"}, func(string) (string, error) {
		select {}
	}, ScriptTag)
	opts := f.options(true)
	opts.BuildTimeout = 20 * time.Millisecond

	group, err := NewFileGroup(TypeJavaScript, slow, []string{"a"}, opts)
	require.NoError(t, err)

	err = group.Build(context.Background())
	assert.True(t, errors.IsBuildError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBaseKindIsNotImplemented(t *testing.T) {
	f := newFixture(t)
	createTestFile(t, filepath.Join(f.public, "a.txt"), "text")
	kind := BaseKind{Ext: Extension{Source: ".txt", Minified: ".min.txt"}}

	group, err := NewFileGroup("text", kind, []string{"a"}, f.options(true))
	require.NoError(t, err)

	_, err = group.Render(context.Background())
	assert.True(t, errors.IsNotImplemented(err))

	err = group.Build(context.Background())
	assert.True(t, errors.IsBuildError(err))
	assert.True(t, errors.IsNotImplemented(err))
}

func TestCustomKind(t *testing.T) {
	f := newFixture(t)
	createTestFile(t, filepath.Join(f.public, "t", "a.tmpl"), "  Hello  ")
	tmpl := NewKind(Extension{Source: ".tmpl", Minified: ".min.tmpl"},
		func(src string) (string, error) { return strings.TrimSpace(src), nil },
		func(path string) templ.Component { return templ.Raw(`<template src="` + path + `"></template>`) })

	opts := f.options(true)
	opts.Name = "views"
	group, err := NewFileGroup("template", tmpl, []string{"t/a"}, opts)
	require.NoError(t, err)
	require.NoError(t, group.Build(context.Background()))

	html, err := group.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `<template src="/views.min.tmpl"></template>`, html)

	content, err := os.ReadFile(group.CachePath())
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(content))
}

func TestTagEscaping(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, ScriptTag(`/js/a"b.js`).Render(context.Background(), &sb))
	assert.Equal(t, `<script type="text/javascript" src="/js/a&#34;b.js"></script>`, sb.String())
}
