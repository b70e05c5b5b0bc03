package github

import (
	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// FilterRepositories keeps repositories whose owner/repository matches any include
// pattern (all when include is empty) and no exclude pattern
func FilterRepositories(repos []Repository, include, exclude []string) ([]Repository, error) {
	for _, pattern := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid repository pattern %q", pattern)
		}
	}

	if len(include) == 0 && len(exclude) == 0 {
		return repos, nil
	}

	filtered := make([]Repository, 0, len(repos))
	for _, repo := range repos {
		name := repo.FullName()
		if len(include) > 0 && !matchAny(include, name) {
			continue
		}
		if matchAny(exclude, name) {
			continue
		}
		filtered = append(filtered, repo)
	}
	return filtered, nil
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if doublestar.MatchUnvalidated(pattern, name) {
			return true
		}
	}
	return false
}
