// Package pathsafe guards every local filesystem write the pipeline makes.
// Paths are resolved and checked for containment before any I/O; violations
// are rejected outright, never rewritten.
package pathsafe

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsafePath marks a path that would resolve outside its approved root.
var ErrUnsafePath = errors.New("path resolves outside approved root")

// maxLogValueLength bounds interpolated values in log lines.
const maxLogValueLength = 500

// ResolveWithin resolves candidate against root and returns the absolute
// path, or ErrUnsafePath when the result escapes root. candidate may be
// relative (joined onto root) or absolute (checked as-is).
func ResolveWithin(root, candidate string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", SanitizeForLog(root), err)
	}

	joined := candidate
	if !filepath.IsAbs(candidate) {
		joined = filepath.Join(absRoot, candidate)
	}

	absPath, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("resolving path %s: %w", SanitizeForLog(candidate), err)
	}

	if !Contains(absRoot, absPath) {
		return "", fmt.Errorf("%w: %s not under %s",
			ErrUnsafePath, SanitizeForLog(absPath), SanitizeForLog(absRoot))
	}

	return absPath, nil
}

// Contains reports whether path sits at or below root. Both arguments must
// already be absolute and cleaned.
func Contains(root, path string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SanitizeForLog renders a value safe for inclusion in a log line: control
// characters are stripped and the result is truncated. Keys, paths and error
// strings originate remotely and must never be able to forge log entries.
func SanitizeForLog(value interface{}) string {
	s := fmt.Sprint(value)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	runes := []rune(s)
	if len(runes) > maxLogValueLength {
		s = string(runes[:maxLogValueLength]) + "..."
	}
	return s
}
