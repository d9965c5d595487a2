package api

import "strings"

// matchPath reports whether path matches pattern.
//
// A pattern ending in "/**" matches its base path and everything below it.
// A "*" segment matches exactly one path segment. Any other pattern must
// equal the path.
func matchPath(path, pattern string) bool {
	if base, ok := strings.CutSuffix(pattern, "/**"); ok {
		return path == base || strings.HasPrefix(path, base+"/")
	}

	if !strings.Contains(pattern, "*") {
		return path == pattern
	}

	if path != "/" && strings.HasSuffix(path, "/") {
		return false
	}
	patternSegments := strings.Split(pattern, "/")
	pathSegments := strings.Split(path, "/")
	if len(patternSegments) != len(pathSegments) {
		return false
	}
	for i, seg := range patternSegments {
		if seg == "*" {
			if pathSegments[i] == "" {
				return false
			}
			continue
		}
		if seg != pathSegments[i] {
			return false
		}
	}
	return true
}

func matchAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchPath(path, pattern) {
			return true
		}
	}
	return false
}
