package github

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-github/v66/github"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"
)

const (
	fileMode   = "100644"
	entryType  = "blob"
	mergeStyle = "merge"
)

// Client implements the APIClient interface using the GitHub REST API
type Client struct {
	client  *github.Client
	retry   RetryConfig
	limiter *RateLimiter
}

// NewClient creates a new GitHub API client authenticated with the provided token.
// Requests are paced by a RateLimiter with the default configuration.
func NewClient(token string) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	limiter := NewRateLimiter(DefaultRateLimiterConfig())
	tc.Transport = &rateLimitTransport{next: tc.Transport, limiter: limiter}

	return &Client{
		client:  github.NewClient(tc),
		limiter: limiter,
	}
}

// RateLimitStats returns the rate limit seen on the last response and the time spent waiting
func (c *Client) RateLimitStats() RateLimiterStats {
	return c.limiter.GetStats()
}

// SetRetryConfig enables retries of rate limit and network errors
func (c *Client) SetRetryConfig(config RetryConfig) {
	c.retry = config
}

// call runs operation with the configured retry policy and wraps its error
func (c *Client) call(ctx context.Context, resource string, operation func() error) error {
	return WithRetry(ctx, func() error {
		if err := operation(); err != nil {
			return WrapGitHubError(err, resource)
		}
		return nil
	}, c.retry)
}

func headsRef(branch string) string {
	return "heads/" + branch
}

func fullRef(branch string) string {
	return "refs/heads/" + branch
}

func convertReference(ref *github.Reference) *Reference {
	return &Reference{
		Ref: ref.GetRef(),
		SHA: ref.GetObject().GetSHA(),
	}
}

// GetBranch retrieves the ref of a branch
func (c *Client) GetBranch(ctx context.Context, repo Repository, branch string) (*Reference, error) {
	var ref *github.Reference
	err := c.call(ctx, fmt.Sprintf("branch %s in %s", branch, repo.FullName()), func() error {
		var err error
		ref, _, err = c.client.Git.GetRef(ctx, repo.Owner, repo.Repository, headsRef(branch))
		return err
	})
	if err != nil {
		return nil, err
	}
	return convertReference(ref), nil
}

// DeleteBranch deletes the ref of a branch
func (c *Client) DeleteBranch(ctx context.Context, repo Repository, branch string) error {
	return c.call(ctx, fmt.Sprintf("branch %s in %s", branch, repo.FullName()), func() error {
		_, err := c.client.Git.DeleteRef(ctx, repo.Owner, repo.Repository, headsRef(branch))
		return err
	})
}

// GetLatestCommit returns the ref of branch, whose SHA is the branch's latest commit
func (c *Client) GetLatestCommit(ctx context.Context, repo Repository, branch string) (*Reference, error) {
	return c.GetBranch(ctx, repo, branch)
}

// CreateBranch creates a branch pointing at sha
func (c *Client) CreateBranch(ctx context.Context, repo Repository, branch, sha string) (*Reference, error) {
	var ref *github.Reference
	err := c.call(ctx, fmt.Sprintf("branch %s in %s", branch, repo.FullName()), func() error {
		var err error
		ref, _, err = c.client.Git.CreateRef(ctx, repo.Owner, repo.Repository, &github.Reference{
			Ref:    github.String(fullRef(branch)),
			Object: &github.GitObject{SHA: github.String(sha)},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return convertReference(ref), nil
}

// GetFileContent fetches and decodes the file at path on ref
func (c *Client) GetFileContent(ctx context.Context, repo Repository, path, ref string) (*FileContent, error) {
	resource := fmt.Sprintf("file %s@%s in %s", path, ref, repo.FullName())

	var file *github.RepositoryContent
	err := c.call(ctx, resource, func() error {
		var err error
		file, _, _, err = c.client.Repositories.GetContents(ctx, repo.Owner, repo.Repository, path,
			&github.RepositoryContentGetOptions{Ref: ref})
		return err
	})
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, NewGitHubError(ErrorTypeValidation, fmt.Sprintf("%s is not a file", path), nil)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, errors.Errorf("decoding %s: %w", resource, err)
	}

	return &FileContent{
		Path:    file.GetPath(),
		SHA:     file.GetSHA(),
		Content: content,
	}, nil
}

// CreateBlob uploads base64 encoded content and verifies the returned blob SHA
func (c *Client) CreateBlob(ctx context.Context, repo Repository, base64Content string) (*Blob, error) {
	data, err := base64.StdEncoding.DecodeString(base64Content)
	if err != nil {
		return nil, errors.Errorf("decoding blob content: %w", err)
	}

	var blob *github.Blob
	err = c.call(ctx, fmt.Sprintf("blob in %s", repo.FullName()), func() error {
		var err error
		blob, _, err = c.client.Git.CreateBlob(ctx, repo.Owner, repo.Repository, &github.Blob{
			Content:  github.String(base64Content),
			Encoding: github.String("base64"),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	expected := plumbing.ComputeHash(plumbing.BlobObject, data).String()
	if blob.GetSHA() != expected {
		return nil, errors.WithDetails(ErrBlobMismatch, "expected", expected, "actual", blob.GetSHA())
	}

	return &Blob{SHA: blob.GetSHA()}, nil
}

// GetCommitRef returns the ref of the branch a commit will be added to
func (c *Client) GetCommitRef(ctx context.Context, repo Repository, branch string) (*Reference, error) {
	return c.GetBranch(ctx, repo, branch)
}

// GetTree returns the tree for a tree or commit SHA
func (c *Client) GetTree(ctx context.Context, repo Repository, sha string) (*Tree, error) {
	var tree *github.Tree
	err := c.call(ctx, fmt.Sprintf("tree %s in %s", sha, repo.FullName()), func() error {
		var err error
		tree, _, err = c.client.Git.GetTree(ctx, repo.Owner, repo.Repository, sha, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Tree{SHA: tree.GetSHA()}, nil
}

// CreateTree creates a tree that overlays a single file on baseTree
func (c *Client) CreateTree(ctx context.Context, repo Repository, baseTree, path, blobSHA string) (*Tree, error) {
	entries := []*github.TreeEntry{
		{
			Path: github.String(path),
			Mode: github.String(fileMode),
			Type: github.String(entryType),
			SHA:  github.String(blobSHA),
		},
	}

	var tree *github.Tree
	err := c.call(ctx, fmt.Sprintf("tree in %s", repo.FullName()), func() error {
		var err error
		tree, _, err = c.client.Git.CreateTree(ctx, repo.Owner, repo.Repository, baseTree, entries)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Tree{SHA: tree.GetSHA()}, nil
}

// CreateCommit creates a commit of treeSHA with the given parents
func (c *Client) CreateCommit(ctx context.Context, repo Repository, message, treeSHA string, parents []string) (*Commit, error) {
	commit := &github.Commit{
		Message: github.String(message),
		Tree:    &github.Tree{SHA: github.String(treeSHA)},
	}
	for _, parent := range parents {
		commit.Parents = append(commit.Parents, &github.Commit{SHA: github.String(parent)})
	}

	var created *github.Commit
	err := c.call(ctx, fmt.Sprintf("commit in %s", repo.FullName()), func() error {
		var err error
		created, _, err = c.client.Git.CreateCommit(ctx, repo.Owner, repo.Repository, commit, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Commit{
		SHA:     created.GetSHA(),
		TreeSHA: created.GetTree().GetSHA(),
	}, nil
}

// UpdateRef moves branch to sha without forcing
func (c *Client) UpdateRef(ctx context.Context, repo Repository, branch, sha string) (*Reference, error) {
	var ref *github.Reference
	err := c.call(ctx, fmt.Sprintf("branch %s in %s", branch, repo.FullName()), func() error {
		var err error
		ref, _, err = c.client.Git.UpdateRef(ctx, repo.Owner, repo.Repository, &github.Reference{
			Ref:    github.String(fullRef(branch)),
			Object: &github.GitObject{SHA: github.String(sha)},
		}, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return convertReference(ref), nil
}

// CreatePullRequest opens a pull request from head into base
func (c *Client) CreatePullRequest(ctx context.Context, repo Repository, title, head, base, body string) (*PullRequest, error) {
	var pr *github.PullRequest
	err := c.call(ctx, fmt.Sprintf("pull request %s -> %s in %s", head, base, repo.FullName()), func() error {
		var err error
		pr, _, err = c.client.PullRequests.Create(ctx, repo.Owner, repo.Repository, &github.NewPullRequest{
			Title: github.String(title),
			Head:  github.String(head),
			Base:  github.String(base),
			Body:  github.String(body),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return &PullRequest{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
	}, nil
}

// MergePullRequest merges a pull request with a merge commit
func (c *Client) MergePullRequest(ctx context.Context, repo Repository, number int) (*MergeResult, error) {
	var result *github.PullRequestMergeResult
	err := c.call(ctx, fmt.Sprintf("pull request #%d in %s", number, repo.FullName()), func() error {
		var err error
		result, _, err = c.client.PullRequests.Merge(ctx, repo.Owner, repo.Repository, number, "",
			&github.PullRequestOptions{MergeMethod: mergeStyle})
		return err
	})
	if err != nil {
		return nil, err
	}

	return &MergeResult{
		SHA:    result.GetSHA(),
		Merged: result.GetMerged(),
	}, nil
}

// ArchiveRepository marks a repository as archived
func (c *Client) ArchiveRepository(ctx context.Context, repo Repository) error {
	return c.call(ctx, fmt.Sprintf("repository %s", repo.FullName()), func() error {
		_, _, err := c.client.Repositories.Edit(ctx, repo.Owner, repo.Repository, &github.Repository{
			Archived: github.Bool(true),
		})
		return err
	})
}

// ListOrganizationRepositories returns one page of an organization's public repositories
func (c *Client) ListOrganizationRepositories(ctx context.Context, org string, page, perPage int) ([]OrganizationRepository, error) {
	opts := &github.RepositoryListByOrgOptions{
		Type:        "public",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}

	var repos []*github.Repository
	err := c.call(ctx, fmt.Sprintf("repositories of organization %s", org), func() error {
		var err error
		repos, _, err = c.client.Repositories.ListByOrg(ctx, org, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := make([]OrganizationRepository, 0, len(repos))
	for _, repo := range repos {
		result = append(result, OrganizationRepository{
			Repository: Repository{
				Owner:      repo.GetOwner().GetLogin(),
				Repository: repo.GetName(),
			},
			Fork:     repo.GetFork(),
			Archived: repo.GetArchived(),
		})
	}
	return result, nil
}

var _ APIClient = (*Client)(nil)
