package cmd

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"readmefooter/pkg/config"
	"readmefooter/pkg/footer"
	"readmefooter/pkg/github"
	"readmefooter/pkg/prompt"
)

// updateOptions holds the flags of the update command
type updateOptions struct {
	yes        bool
	overwrite  bool
	fzf        bool
	include    []string
	exclude    []string
	maxRetries int
}

var updateFlags updateOptions

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Add or refresh the footer in the README of the selected repositories",
	Long: `Add or refresh the footer in README.md of every selected repository.

For each repository the update branch is deleted if it exists, recreated from the
latest commit of the base branch, and the README of the base branch is merged with
the footer. The result is committed to the update branch and merged back through a
pull request.

Unless --yes is given you are asked whether to process all repositories, whether
to overwrite existing footers, what to do with each repository, and whether to
save the repositories that failed. Failed repositories can be retried on the next
run from the failure file.

Press Ctrl-C once to stop after the current repository. A pending question still
waits for its answer; press Ctrl-C again to exit immediately.

Examples:
  # Interactive run over the public repositories of an organization
  readme-footer update --org acme --update-branch-name readme-footer

  # Only some repositories, picking the action for each one with fzf
  readme-footer update --include 'acme/service-*' --exclude 'acme/*-docs' --fzf

  # Unattended run that overwrites existing footers
  GITHUB_TOKEN=... readme-footer update --yes --overwrite

  # Explicit repository list
  readme-footer update --override-repos '[{"owner":"acme","repository":"widgets"}]'`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVarP(&updateFlags.yes, "yes", "y", false, "Process all repositories without asking and save failed repositories")
	updateCmd.Flags().BoolVar(&updateFlags.overwrite, "overwrite", false, "Overwrite existing footers without asking")
	updateCmd.Flags().BoolVar(&updateFlags.fzf, "fzf", false, "Pick the action for each repository with fzf")
	updateCmd.Flags().StringSliceVar(&updateFlags.include, "include", nil, "Only process repositories matching these owner/repository patterns (e.g., --include 'acme/service-*')")
	updateCmd.Flags().StringSliceVar(&updateFlags.exclude, "exclude", nil, "Skip repositories matching these owner/repository patterns")
	updateCmd.Flags().IntVar(&updateFlags.maxRetries, "max-retries", 0, "Retry rate limited and network failures up to this many times")
	addSettingFlags(updateCmd)
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	footerHTML, err := cfg.LoadFooter()
	if err != nil {
		return err
	}

	client := github.NewClient(cfg.GitHubToken)
	if updateFlags.maxRetries > 0 {
		client.SetRetryConfig(github.DefaultRetryConfig(updateFlags.maxRetries))
	}

	out := cmd.OutOrStdout()
	if err := authenticate(ctx, client, out, cmd.ErrOrStderr()); err != nil {
		return err
	}

	result, err := update(ctx, client, newPrompter(cmd.InOrStdin(), out, updateFlags), out, cfg, footerHTML, updateFlags)

	stats := client.RateLimitStats()
	zerolog.Ctx(ctx).Debug().Int("remaining", stats.RemainingRequests).Time("reset", stats.ResetTime).
		Int64("waits", stats.TotalWaits).Dur("waited", stats.TotalDelayTime).Msg("rate limit")

	if err != nil {
		return err
	}

	if failed := result.Count(github.StatusFailed); failed > 0 {
		return errors.Errorf("%d of %d repositories failed", failed, len(result.Statuses))
	}
	return nil
}

func newPrompter(in io.Reader, out io.Writer, opts updateOptions) prompt.Prompter {
	if opts.yes {
		return prompt.Auto{}
	}

	line := prompt.NewLine(in, out)
	if opts.fzf {
		return prompt.NewFzf(line)
	}
	return line
}

// update resolves the repositories and runs the batch over them
func update(ctx context.Context, client github.APIClient, p prompt.Prompter, out io.Writer, cfg *config.Config, footerHTML string, opts updateOptions) (*github.BatchResult, error) {
	repos, origin, err := github.ResolveRepositories(ctx, client, p, out, sourceOptions(cfg, opts.include, opts.exclude))
	if err != nil {
		return nil, errors.Errorf("failed to resolve repositories: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("origin", string(origin)).Str("branch", cfg.UpdateBranchName).
		Str("base", cfg.BaseBranch).Str("marker", cfg.MarkerID).Msg("starting update")

	updater := github.NewUpdater(client, footer.NewEngine(cfg.MarkerID), p, out, github.UpdaterOptions{
		UpdateBranch: cfg.UpdateBranchName,
		BaseBranch:   cfg.BaseBranch,
		Footer:       footerHTML,
	})

	batch := github.NewBatch(client, updater, p, out, github.BatchOptions{
		ProcessAll:   opts.yes,
		OverwriteAll: opts.overwrite,
		SaveFailures: opts.yes,
		FailedFile:   cfg.FailedRepositoriesFile,
	})

	return batch.Run(ctx, repos)
}
