package partition

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandPaths normalizes a path expression (a single string or a slice of
// strings) into an ordered list of concrete file paths. Local patterns
// (empty or "file" URL scheme) are glob-expanded with doublestar and sorted
// lexicographically; anything else is treated as an opaque remote URL and
// passed through unchanged, in encounter order, per spec.md §4.3.
func ExpandPaths(pathExpr any) ([]string, error) {
	var segments []string
	switch v := pathExpr.(type) {
	case string:
		segments = []string{v}
	case []string:
		segments = v
	default:
		return nil, fmt.Errorf("partition: unsupported path expression type %T", pathExpr)
	}

	var out []string
	for _, seg := range segments {
		expanded, err := explode(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// explode mirrors uproot's `explode`: parse as a URL, and if the scheme is
// empty or "file", glob-expand and sort; otherwise pass the string through
// unchanged as a remote URL.
func explode(x string) ([]string, error) {
	u, err := url.Parse(x)
	local := err != nil || u.Scheme == "" || u.Scheme == "file"
	if !local {
		return []string{x}, nil
	}

	pattern := x
	if err == nil && u.Scheme == "file" {
		pattern = u.Path
	}

	matches, gerr := doublestar.FilepathGlob(pattern)
	if gerr != nil {
		return nil, fmt.Errorf("partition: glob %q: %w", pattern, gerr)
	}
	sort.Strings(matches)
	return matches, nil
}
