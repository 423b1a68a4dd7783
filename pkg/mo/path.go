package mo

import (
	"fmt"
	"strings"
)

// Root is the URI of the tree root.
const Root = "."

// Normalize returns the canonical form of a node URI: rooted at ".", no
// trailing slash, no empty or relative segments. "DevInfo/Man" and
// "./DevInfo/Man/" both become "./DevInfo/Man".
func Normalize(uri string) (string, error) {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}
	uri = strings.TrimSuffix(uri, "/")
	switch {
	case uri == "" || uri == Root:
		return Root, nil
	case strings.HasPrefix(uri, "./"):
		uri = uri[2:]
	case strings.HasPrefix(uri, "/"):
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	for _, seg := range strings.Split(uri, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
		}
	}
	return Root + "/" + uri, nil
}

// Join appends a child name to a normalized URI.
func Join(parent, name string) string {
	if parent == Root || parent == "" {
		return Root + "/" + name
	}
	return parent + "/" + name
}

// Parent returns the parent of a normalized URI. The parent of the root is
// the root.
func Parent(uri string) string {
	i := strings.LastIndexByte(uri, '/')
	if i <= 0 {
		return Root
	}
	return uri[:i]
}

// Name returns the last segment of a normalized URI.
func Name(uri string) string {
	return uri[strings.LastIndexByte(uri, '/')+1:]
}

// HasPrefix reports whether base is uri itself or one of its ancestors.
// Both must be normalized.
func HasPrefix(uri, base string) bool {
	if base == Root {
		return true
	}
	if !strings.HasPrefix(uri, base) {
		return false
	}
	return len(uri) == len(base) || uri[len(base)] == '/'
}

// Depth returns the number of segments below the root.
func Depth(uri string) int {
	if uri == Root {
		return 0
	}
	return strings.Count(uri, "/")
}
