package github

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"readmefooter/pkg/prompt"
)

// Per-repository actions offered when repositories are not all processed
const (
	ActionProcess = "y"
	ActionSkip    = "n"
	ActionArchive = "archive"
)

var repositoryActions = []prompt.Option{
	{Value: ActionProcess, Description: "add or update the footer"},
	{Value: ActionSkip, Description: "leave the repository untouched", Default: true},
	{Value: ActionArchive, Description: "archive the repository"},
}

// BatchOptions holds answers given up front instead of at the prompt
type BatchOptions struct {
	// ProcessAll skips the per-repository process/skip/archive question and the
	// overwrite-all question, which then takes the value of OverwriteAll
	ProcessAll bool
	// OverwriteAll replaces existing footers without asking
	OverwriteAll bool
	// SaveFailures writes failed repositories without asking
	SaveFailures bool
	FailedFile   string
}

// BatchResult is the ordered outcome of a run
type BatchResult struct {
	Statuses []RepositoryStatus
}

// Count returns how many repositories ended with status
func (r *BatchResult) Count(status Status) int {
	count := 0
	for _, s := range r.Statuses {
		if s.Status == status {
			count++
		}
	}
	return count
}

// Failed returns the repositories that ended as failed
func (r *BatchResult) Failed() []Repository {
	return FailedRepositories(r.Statuses)
}

// Batch runs the updater over a list of repositories
type Batch struct {
	client   APIClient
	updater  *Updater
	prompter prompt.Prompter
	out      io.Writer
	opts     BatchOptions
}

// NewBatch creates a batch. An empty failed file defaults to DefaultFailedRepositoriesFile.
func NewBatch(client APIClient, updater *Updater, prompter prompt.Prompter, out io.Writer, opts BatchOptions) *Batch {
	if opts.FailedFile == "" {
		opts.FailedFile = DefaultFailedRepositoriesFile
	}
	return &Batch{
		client:   client,
		updater:  updater,
		prompter: prompter,
		out:      out,
		opts:     opts,
	}
}

// Run validates repos, processes them in order and prints a summary. Invalid
// input aborts before any remote call. Cancelling ctx stops the run between
// repositories and returns the statuses recorded so far with the context error.
func (b *Batch) Run(ctx context.Context, repos []Repository) (*BatchResult, error) {
	logger := zerolog.Ctx(ctx)

	if err := ValidateRepositories(repos); err != nil {
		fmt.Fprintln(b.out, color.New(color.FgRed).Sprint("Empty or invalid array of repositories. Aborting..."))
		return nil, errors.WithStack(err)
	}

	if err := DisplaySelectedRepositories(b.out, repos); err != nil {
		logger.Warn().Err(err).Msg("failed to render repository table")
	}

	processAll, overwriteAll, err := b.globalChoices()
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Statuses: make([]RepositoryStatus, 0, len(repos))}

	for i, repo := range repos {
		if err := ctx.Err(); err != nil {
			logger.Warn().Int("processed", i).Int("total", len(repos)).Msg("run interrupted")
			return result, errors.WithStack(err)
		}

		fmt.Fprintf(b.out, "\n%d\n", i)

		if !processAll {
			status, handled, err := b.askAction(ctx, repo)
			if err != nil {
				return result, err
			}
			if handled {
				result.Statuses = append(result.Statuses, status)
				continue
			}
		}

		result.Statuses = append(result.Statuses, b.updater.Update(ctx, repo, overwriteAll))
	}

	PrintSummary(b.out, result.Statuses)
	b.saveFailures(ctx, result)

	logger.Info().
		Int("successful", result.Count(StatusSuccessful)).
		Int("skipped", result.Count(StatusSkipped)).
		Int("failed", result.Count(StatusFailed)).
		Int("archived", result.Count(StatusArchived)).
		Msg("run finished")

	return result, nil
}

func (b *Batch) globalChoices() (processAll, overwriteAll bool, err error) {
	fmt.Fprintln(b.out, "This will add custom footers to ALL the selected repositories. It can also overwrite existing footers if desired.")

	processAll = b.opts.ProcessAll
	if !processAll {
		fmt.Fprintln(b.out, color.New(color.FgRed).Sprint("If you do not want to automatically update ALL of the selected repositories, answer 'n' to the following question."))
		processAll, err = b.prompter.Confirm("Do you want to add the custom footer to ALL selected repositories? (otherwise will be asked individually)")
		if err != nil {
			return false, false, err
		}
	}
	if processAll {
		fmt.Fprintln(b.out, "All repositories will be processed.")
	}

	overwriteAll = b.opts.OverwriteAll
	if !overwriteAll && !b.opts.ProcessAll {
		overwriteAll, err = b.prompter.Confirm(fmt.Sprintf("If found do you want to automatically overwrite ALL existing %s footers? (otherwise will be asked individually)",
			b.updater.engine.MarkerID()))
		if err != nil {
			return false, false, err
		}
	}
	if overwriteAll {
		fmt.Fprintln(b.out, "All existing footers will be overwritten.")
	}

	return processAll, overwriteAll, nil
}

// askAction returns the status of a repository the operator skipped or archived.
// handled is false when the repository should be processed.
func (b *Batch) askAction(ctx context.Context, repo Repository) (RepositoryStatus, bool, error) {
	name := repoColor.Sprint(repo.FullName())

	action, err := b.prompter.Choose(fmt.Sprintf("Do you want to process or archive repository: %s?", repo.FullName()), repositoryActions)
	if err != nil {
		return RepositoryStatus{}, false, err
	}

	switch action {
	case ActionProcess:
		return RepositoryStatus{}, false, nil

	case ActionArchive:
		if err := b.client.ArchiveRepository(ctx, repo); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("repository", repo.FullName()).Msg("failed to archive repository")
			fmt.Fprintf(b.out, "Error archiving repository %s\n", name)
			return RepositoryStatus{Repository: repo, Status: StatusFailed, Message: MessageArchiveFailed}, true, nil
		}
		fmt.Fprintf(b.out, "Repository %s was archived. Proceeding...\n", name)
		return RepositoryStatus{Repository: repo, Status: StatusArchived, Message: MessageArchived}, true, nil

	default:
		fmt.Fprintf(b.out, "Skipping repository %s.\n", name)
		return RepositoryStatus{Repository: repo, Status: StatusSkipped, Message: MessageSkippedByUser}, true, nil
	}
}

// saveFailures offers to write failed repositories to the failure file
func (b *Batch) saveFailures(ctx context.Context, result *BatchResult) {
	failed := result.Failed()
	if len(failed) == 0 {
		return
	}

	save := b.opts.SaveFailures
	if !save {
		fmt.Fprintln(b.out)
		var err error
		save, err = b.prompter.Confirm(fmt.Sprintf("There were %d failed repositories. Do you want to save them to a file as JSON?", len(failed)))
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to read answer")
			return
		}
	}
	if !save {
		return
	}

	if err := SaveFailedRepositories(b.opts.FailedFile, failed); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("file", b.opts.FailedFile).Msg("failed to save failed repositories")
		fmt.Fprintln(b.out, color.New(color.FgRed).Sprint("Failed to save on file"))
		return
	}
	fmt.Fprintf(b.out, "Failed repositories have been saved to %s\n", b.opts.FailedFile)
	fmt.Fprintln(b.out, color.New(color.FgGreen).Sprint("Saved to file"))
}
