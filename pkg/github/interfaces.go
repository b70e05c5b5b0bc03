package github

import "context"

// APIClient defines the GitHub API operations used to update README footers.
// Each method maps to exactly one REST endpoint.
type APIClient interface {
	// Branch operations
	GetBranch(ctx context.Context, repo Repository, branch string) (*Reference, error)
	DeleteBranch(ctx context.Context, repo Repository, branch string) error
	GetLatestCommit(ctx context.Context, repo Repository, branch string) (*Reference, error)
	CreateBranch(ctx context.Context, repo Repository, branch, sha string) (*Reference, error)

	// Content operations
	GetFileContent(ctx context.Context, repo Repository, path, ref string) (*FileContent, error)

	// Git data operations
	CreateBlob(ctx context.Context, repo Repository, base64Content string) (*Blob, error)
	GetCommitRef(ctx context.Context, repo Repository, branch string) (*Reference, error)
	GetTree(ctx context.Context, repo Repository, sha string) (*Tree, error)
	CreateTree(ctx context.Context, repo Repository, baseTree, path, blobSHA string) (*Tree, error)
	CreateCommit(ctx context.Context, repo Repository, message, treeSHA string, parents []string) (*Commit, error)
	UpdateRef(ctx context.Context, repo Repository, branch, sha string) (*Reference, error)

	// Pull request operations
	CreatePullRequest(ctx context.Context, repo Repository, title, head, base, body string) (*PullRequest, error)
	MergePullRequest(ctx context.Context, repo Repository, number int) (*MergeResult, error)

	// Repository operations
	ArchiveRepository(ctx context.Context, repo Repository) error
	ListOrganizationRepositories(ctx context.Context, org string, page, perPage int) ([]OrganizationRepository, error)
}
