package github

import "fmt"

// Repository identifies a GitHub repository
type Repository struct {
	Owner      string `json:"owner" yaml:"owner"`
	Repository string `json:"repository" yaml:"repository"`
}

// FullName returns owner/repository
func (r Repository) FullName() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Repository)
}

// Status is the terminal outcome of processing one repository
type Status string

const (
	StatusSuccessful Status = "successful"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
	StatusArchived   Status = "archived"
)

// RepositoryStatus records the outcome for a single repository
type RepositoryStatus struct {
	Repository
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Reference is a git ref and the commit it points at
type Reference struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// FileContent is a decoded file fetched from a repository
type FileContent struct {
	Path    string `json:"path"`
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

// Blob is a created git blob
type Blob struct {
	SHA string `json:"sha"`
}

// Tree is a git tree
type Tree struct {
	SHA string `json:"sha"`
}

// Commit is a git commit
type Commit struct {
	SHA     string `json:"sha"`
	TreeSHA string `json:"tree_sha"`
}

// PullRequest is an opened pull request
type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// MergeResult is the outcome of merging a pull request
type MergeResult struct {
	SHA    string `json:"sha"`
	Merged bool   `json:"merged"`
}

// OrganizationRepository is a listing entry with the flags used for filtering
type OrganizationRepository struct {
	Repository
	Fork     bool `json:"fork"`
	Archived bool `json:"archived"`
}
