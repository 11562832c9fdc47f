// Package testutils holds fixtures shared by the asset pipeline tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetpipe/internal/config"
)

// CreateTempProject creates a temporary project with the default public
// root and cache directory.
func CreateTempProject(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	dirs := []string{
		filepath.Join("public", "js"),
		filepath.Join("public", "css"),
		config.DefaultCacheDir,
	}

	for _, dir := range dirs {
		err := os.MkdirAll(filepath.Join(tempDir, dir), 0755)
		require.NoError(t, err)
	}

	return tempDir
}

// CreateTestAsset writes content to rel under dir, creating parent
// directories, and returns the absolute path.
func CreateTestAsset(t *testing.T, dir, rel, content string) string {
	t.Helper()
	assetPath := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(assetPath), 0755))
	require.NoError(t, os.WriteFile(assetPath, []byte(content), 0644))
	return assetPath
}

// CreateStandardAssets writes every StandardAssetContent entry under the
// project's public root.
func CreateStandardAssets(t *testing.T, projectDir string) {
	t.Helper()
	for rel, content := range StandardAssetContent {
		CreateTestAsset(t, filepath.Join(projectDir, "public"), rel, content)
	}
}

// CreateTestManifest writes an assets.yml into projectDir.
func CreateTestManifest(t *testing.T, projectDir, content string) string {
	t.Helper()
	return CreateTestAsset(t, projectDir, config.DefaultManifest, content)
}

// CreateTestConfig creates a configuration rooted at projectDir that
// builds in-process.
func CreateTestConfig(projectDir string) *config.Config {
	return &config.Config{
		Assets: config.AssetsConfig{
			CacheDir:    filepath.Join(projectDir, config.DefaultCacheDir),
			Minify:      true,
			SearchRoots: []string{filepath.Join(projectDir, "public")},
			Isolation:   config.IsolationGoroutine,
			Manifest:    filepath.Join(projectDir, config.DefaultManifest),
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
	}
}

// StandardAssetContent maps public-relative paths to sample sources.
var StandardAssetContent = map[string]string{
	"js/jquery.js": `(function (window) {
  var jQuery = function (selector) {
    return document.querySelectorAll(selector);
  };
  window.jQuery = jQuery;
})(window);
`,
	"js/app.js": `function boot() {
  return jQuery("body");
}
`,
	"js/users.js": `var users = [];
`,
	"css/site.css": `body {
  margin: 0;
}
`,
	"css/users.css": `.user {
  color: #ff0000;
}
`,
}

// AssertFilePermissions checks that files have the expected permissions
func AssertFilePermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)

	actualMode := info.Mode()
	require.Equal(t, expectedMode, actualMode&os.FileMode(0777),
		"File %s has incorrect permissions: got %o, want %o",
		path, actualMode&os.FileMode(0777), expectedMode)
}

// WaitForFileChange waits for a file to be modified (useful for testing file watchers)
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
