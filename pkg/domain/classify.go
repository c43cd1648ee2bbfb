package domain

import (
	"strings"
)

// Classifier maps a git ref to its BranchClass.
type Classifier func(ref string) BranchClass

// DefaultProtectedRefs are the refs classified as Release
// when no explicit patterns are configured.
var DefaultProtectedRefs = []string{"main", "master"}

// NewClassifier creates a Classifier from protected ref patterns.
//
// A pattern is either a literal branch name or, when it ends with "/*",
// a prefix pattern matching every branch under that path.
// Refs are compared after stripping a leading "refs/heads/",
// so "refs/heads/main" and "main" classify alike.
// Unmatched refs, including the empty ref, are Review.
func NewClassifier(protected ...string) Classifier {
	if len(protected) == 0 {
		protected = DefaultProtectedRefs
	}

	literals := map[string]struct{}{}
	prefixes := []string{}
	for _, p := range protected {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			prefixes = append(prefixes, prefix+"/")
			continue
		}
		literals[p] = struct{}{}
	}

	return func(ref string) BranchClass {
		name := strings.TrimPrefix(ref, "refs/heads/")
		if _, ok := literals[name]; ok {
			return Release
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(name, prefix) {
				return Release
			}
		}
		return Review
	}
}
