package github

import (
	"encoding/json"
	"os"

	"gitlab.com/tozd/go/errors"
)

// DefaultFailedRepositoriesFile is where failed repositories are saved for a retry run
const DefaultFailedRepositoriesFile = "failed-repositories.json"

// FailedRepositories returns the repositories whose status is failed, in order
func FailedRepositories(statuses []RepositoryStatus) []Repository {
	failed := []Repository{}
	for _, status := range statuses {
		if status.Status == StatusFailed {
			failed = append(failed, status.Repository)
		}
	}
	return failed
}

// SaveFailedRepositories writes repos to path as an indented JSON array of {owner, repository}
func SaveFailedRepositories(path string, repos []Repository) error {
	data, err := json.MarshalIndent(repos, "", "  ")
	if err != nil {
		return errors.Errorf("failed to marshal failed repositories: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// LoadFailedRepositories reads a file written by SaveFailedRepositories
func LoadFailedRepositories(path string) ([]Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("failed to read %s: %w", path, err)
	}

	var repos []Repository
	if err := json.Unmarshal(data, &repos); err != nil {
		return nil, errors.Errorf("failed to parse %s: %w", path, err)
	}

	return repos, nil
}

// FailedRepositoriesFileExists reports whether a failure file from a previous run is present
func FailedRepositoriesFileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
