// Package bundle implements the unit of work that a build step runs inside
// an isolated failure domain: read the resolved sources, minify each one,
// concatenate the results and refresh the cache file only when its content
// digest changed.
package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSeparator is placed between the minified content of consecutive
// sources when a job names no separator of its own.
const DefaultSeparator = "\n"

// Job describes one minify-and-write unit. It is JSON encoded when the unit
// runs in a worker process.
type Job struct {
	// Type is the registered asset type tag, used by workers to pick a minifier.
	Type string `json:"type"`
	// Sources are resolved source paths in concatenation order.
	Sources []string `json:"sources"`
	// Target is the cache file to write.
	Target string `json:"target"`
	// Separator joins consecutive minified sources. Empty means DefaultSeparator.
	Separator string `json:"separator,omitempty"`
}

// Validate checks that the job can run at all.
func (j Job) Validate() error {
	if j.Target == "" {
		return fmt.Errorf("bundle job has no target")
	}
	if j.Type == "" {
		return fmt.Errorf("bundle job for %s has no type", j.Target)
	}
	return nil
}

// MinifyFunc minifies one source text.
type MinifyFunc func(src string) (string, error)

// Result reports what Write did.
type Result struct {
	Digest  string `json:"digest"`
	Bytes   int    `json:"bytes"`
	Written bool   `json:"written"`
}

// Write minifies and concatenates the job's sources and writes the result to
// job.Target unless a file with identical content is already there.
// A nil cache disables digest memoization.
func Write(job Job, minify MinifyFunc, cache *DigestCache) (Result, error) {
	if err := job.Validate(); err != nil {
		return Result{}, err
	}
	if minify == nil {
		return Result{}, fmt.Errorf("no minifier for type %q", job.Type)
	}

	separator := job.Separator
	if separator == "" {
		separator = DefaultSeparator
	}

	var blob strings.Builder
	for i, source := range job.Sources {
		raw, err := os.ReadFile(source)
		if err != nil {
			return Result{}, fmt.Errorf("read %s: %w", source, err)
		}
		minified, err := minify(string(raw))
		if err != nil {
			return Result{}, fmt.Errorf("minify %s: %w", source, err)
		}
		if i > 0 {
			blob.WriteString(separator)
		}
		blob.WriteString(minified)
	}

	content := blob.String()
	result := Result{
		Digest: DigestString(content),
		Bytes:  len(content),
	}

	if existing, err := cache.FileDigest(job.Target); err == nil && existing == result.Digest {
		return result, nil
	} else if err != nil && !os.IsNotExist(err) {
		return Result{}, fmt.Errorf("digest existing %s: %w", job.Target, err)
	}

	if err := writeFileAtomic(job.Target, []byte(content)); err != nil {
		return Result{}, err
	}
	cache.Remember(job.Target, result.Digest)
	result.Written = true

	return result, nil
}

// DigestString returns the hex SHA-256 digest of s.
func DigestString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DigestFile returns the hex SHA-256 digest of the file at path.
func DigestFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// writeFileAtomic writes through a temporary file in the target directory
// so readers never observe a partially written cache file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", path, err)
	}

	return nil
}
