package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"readmefooter/pkg/footer"
	"readmefooter/pkg/prompt"
)

const (
	// ReadmePath is the file the footer is written to
	ReadmePath = "README.md"

	// DefaultBaseBranch is the branch updates are cut from and merged into
	DefaultBaseBranch = "develop"

	CommitMessage    = "Update README"
	PullRequestTitle = "Update README via script"
	PullRequestBody  = "This PR updates the README."
)

// Status messages recorded by the updater and the batch
const (
	MessageBaseBranchMissing = "Develop branch not found or latest commit information missing"
	MessageReadmeNotFound    = "README not found"
	MessageFooterKept        = "Existing footer was kept by user"
	MessageNoChanges         = "No changes needed"
	MessageUpdateFailed      = "Error in updating repository"
	MessageSuccessful        = "Changes were successful"
	MessageArchived          = "Repository was archived by user"
	MessageArchiveFailed     = "Failed to archive repository"
	MessageSkippedByUser     = "Changes were skipped by user"
)

// State is a step of a repository update
type State string

const (
	StateStart           State = "start"
	StateBranchCleared   State = "branch_cleared"
	StateBranchCreated   State = "branch_created"
	StateReadmeEvaluated State = "readme_evaluated"
	StateCommitted       State = "committed"
	StatePullRequestOpen State = "pull_request_open"
	StateMerged          State = "merged"
)

// UpdaterOptions configures an Updater
type UpdaterOptions struct {
	UpdateBranch string
	BaseBranch   string
	Footer       string
}

// Updater runs the update of a single repository: recreate the update branch from
// the base branch, merge the footer into the README, commit it, then open and
// merge a pull request
type Updater struct {
	client   APIClient
	engine   *footer.Engine
	prompter prompt.Prompter
	out      io.Writer
	opts     UpdaterOptions
}

// NewUpdater creates an updater. An empty base branch defaults to DefaultBaseBranch.
func NewUpdater(client APIClient, engine *footer.Engine, prompter prompt.Prompter, out io.Writer, opts UpdaterOptions) *Updater {
	if opts.BaseBranch == "" {
		opts.BaseBranch = DefaultBaseBranch
	}
	return &Updater{
		client:   client,
		engine:   engine,
		prompter: prompter,
		out:      out,
		opts:     opts,
	}
}

// run holds the values passed between the steps of one update
type run struct {
	repo   Repository
	logger zerolog.Logger
	state  State
	commit string
	pr     *PullRequest
}

func (r *run) advance(state State) {
	r.logger.Debug().Str("from", string(r.state)).Str("to", string(state)).Msg("state transition")
	r.state = state
}

func (r *run) done(status Status, message string) RepositoryStatus {
	event := r.logger.Debug().Str("state", string(r.state)).Str("status", string(status))
	if r.commit != "" {
		event = event.Str("commit", r.commit)
	}
	if r.pr != nil {
		event = event.Int("pull_request", r.pr.Number).Str("url", r.pr.URL)
	}
	event.Msg(message)
	return RepositoryStatus{Repository: r.repo, Status: status, Message: message}
}

var (
	repoColor   = color.New(color.FgMagenta)
	branchColor = color.New(color.FgCyan)
)

// Update processes one repository and returns its terminal status. Errors never
// escape; they are recorded as a failed status. overwriteAll skips the
// per-repository question when the README already has a footer.
func (u *Updater) Update(ctx context.Context, repo Repository, overwriteAll bool) RepositoryStatus {
	r := &run{
		repo:   repo,
		logger: zerolog.Ctx(ctx).With().Str("repository", repo.FullName()).Logger(),
		state:  StateStart,
	}
	name := repoColor.Sprint(repo.FullName())

	fmt.Fprintf(u.out, "Beginning work on repository: %s with branch of: %s\n", name, branchColor.Sprint(u.opts.UpdateBranch))

	if err := u.clearBranch(ctx, r); err != nil {
		r.logger.Error().Err(err).Msg("failed to clear update branch")
		return r.done(StatusFailed, MessageUpdateFailed)
	}
	r.advance(StateBranchCleared)

	if err := u.createBranch(ctx, r); err != nil {
		r.logger.Error().Err(err).Str("base", u.opts.BaseBranch).Msg("failed to create update branch")
		fmt.Fprintf(u.out, "No changes made to %s. %s.\n", name, MessageBaseBranchMissing)
		return r.done(StatusFailed, MessageBaseBranchMissing)
	}
	r.advance(StateBranchCreated)

	content, status := u.evaluateReadme(ctx, r, overwriteAll)
	if status != nil {
		if status.Status == StatusSkipped {
			u.discardBranch(ctx, r)
		}
		return *status
	}
	r.advance(StateReadmeEvaluated)

	if err := u.commit(ctx, r, content); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit README")
		return r.done(StatusFailed, MessageUpdateFailed)
	}
	r.advance(StateCommitted)

	pr, err := u.client.CreatePullRequest(ctx, repo, PullRequestTitle, u.opts.UpdateBranch, u.opts.BaseBranch, PullRequestBody)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to open pull request")
		return r.done(StatusFailed, MessageUpdateFailed)
	}
	r.pr = pr
	fmt.Fprintf(u.out, "Pull request created with number: %d\n", pr.Number)
	r.advance(StatePullRequestOpen)

	result, err := u.client.MergePullRequest(ctx, repo, pr.Number)
	if err != nil {
		r.logger.Error().Err(err).Int("pull_request", pr.Number).Msg("failed to merge pull request")
		return r.done(StatusFailed, MessageUpdateFailed)
	}
	if !result.Merged {
		r.logger.Error().Int("pull_request", pr.Number).Msg("pull request was not merged")
		return r.done(StatusFailed, MessageUpdateFailed)
	}
	fmt.Fprintf(u.out, "Pull request: %d was auto merged\n", pr.Number)
	r.advance(StateMerged)

	return r.done(StatusSuccessful, MessageSuccessful)
}

// clearBranch deletes a stale update branch left by an earlier run
func (u *Updater) clearBranch(ctx context.Context, r *run) error {
	branch := u.opts.UpdateBranch
	name := repoColor.Sprint(r.repo.FullName())

	if _, err := u.client.GetBranch(ctx, r.repo, branch); err != nil {
		if IsNotFound(err) {
			fmt.Fprintf(u.out, "Branch %s does not exist in repository %s. Proceeding...\n", branchColor.Sprint(branch), name)
			return nil
		}
		return err
	}

	if err := u.client.DeleteBranch(ctx, r.repo, branch); err != nil {
		return err
	}
	fmt.Fprintf(u.out, "Deleted existing branch: %s in repository: %s\n", branchColor.Sprint(branch), name)
	return nil
}

// createBranch cuts the update branch from the latest commit of the base branch
func (u *Updater) createBranch(ctx context.Context, r *run) error {
	latest, err := u.client.GetLatestCommit(ctx, r.repo, u.opts.BaseBranch)
	if err != nil {
		return err
	}
	if latest == nil || latest.SHA == "" {
		return NewGitHubError(ErrorTypeNotFound, "latest commit information missing", nil)
	}

	if _, err := u.client.CreateBranch(ctx, r.repo, u.opts.UpdateBranch, latest.SHA); err != nil {
		return err
	}

	fmt.Fprintf(u.out, "Created branch: %s from the latest %s commit for repository: %s\n",
		branchColor.Sprint(u.opts.UpdateBranch), u.opts.BaseBranch, repoColor.Sprint(r.repo.FullName()))
	return nil
}

// discardBranch deletes the update branch of a repository that needs no commit.
// A failure only leaves the branch for the next run to clear.
func (u *Updater) discardBranch(ctx context.Context, r *run) {
	if err := u.client.DeleteBranch(ctx, r.repo, u.opts.UpdateBranch); err != nil {
		r.logger.Warn().Err(err).Msg("failed to delete unused update branch")
		return
	}
	fmt.Fprintf(u.out, "Deleted unused branch: %s in repository: %s\n",
		branchColor.Sprint(u.opts.UpdateBranch), repoColor.Sprint(r.repo.FullName()))
}

// evaluateReadme returns the merged README, or the terminal status when the repository is done
func (u *Updater) evaluateReadme(ctx context.Context, r *run, overwriteAll bool) (string, *RepositoryStatus) {
	name := repoColor.Sprint(r.repo.FullName())

	file, err := u.client.GetFileContent(ctx, r.repo, ReadmePath, u.opts.BaseBranch)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to fetch README")
		if IsNotFound(err) {
			fmt.Fprintf(u.out, "%s\n", color.New(color.FgRed).Sprintf("README was not found in repository: %s", name))
			status := r.done(StatusFailed, MessageReadmeNotFound)
			return "", &status
		}
		status := r.done(StatusFailed, MessageUpdateFailed)
		return "", &status
	}

	original := file.Content
	if u.engine.Detect(original) && !overwriteAll {
		overwrite, err := u.prompter.Confirm(fmt.Sprintf("%s exists already! Do you want to overwrite the existing footer for %s",
			u.engine.MarkerID(), r.repo.FullName()))
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to read answer")
			status := r.done(StatusFailed, MessageUpdateFailed)
			return "", &status
		}
		if !overwrite {
			fmt.Fprintf(u.out, "User aborted %s\n", name)
			status := r.done(StatusSkipped, MessageFooterKept)
			return "", &status
		}
	}

	updated := u.engine.Merge(original, u.opts.Footer, true)
	if updated == original {
		fmt.Fprintf(u.out, "Repository: %s original data matched update, nothing was changed.\n", name)
		status := r.done(StatusSkipped, MessageNoChanges)
		return "", &status
	}

	if !u.engine.RendersAsHTML(updated) {
		r.logger.Warn().Msg("footer will not render as an HTML block")
	}

	return updated, nil
}

// commit writes content to README.md on the update branch with a blob, tree and commit
func (u *Updater) commit(ctx context.Context, r *run, content string) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	blob, err := u.client.CreateBlob(ctx, r.repo, encoded)
	if err != nil {
		return err
	}

	ref, err := u.client.GetCommitRef(ctx, r.repo, u.opts.UpdateBranch)
	if err != nil {
		return err
	}

	base, err := u.client.GetTree(ctx, r.repo, ref.SHA)
	if err != nil {
		return err
	}

	tree, err := u.client.CreateTree(ctx, r.repo, base.SHA, ReadmePath, blob.SHA)
	if err != nil {
		return err
	}

	commit, err := u.client.CreateCommit(ctx, r.repo, CommitMessage, tree.SHA, []string{ref.SHA})
	if err != nil {
		return err
	}

	if _, err := u.client.UpdateRef(ctx, r.repo, u.opts.UpdateBranch, commit.SHA); err != nil {
		return err
	}

	r.commit = commit.SHA
	r.logger.Debug().Str("commit", commit.SHA).Str("blob", blob.SHA).Msg("committed README")
	return nil
}
