package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"readmefooter/pkg/github"
	"readmefooter/pkg/prompt"
)

var (
	listJSON    bool
	listInclude []string
	listExclude []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the repositories an update would process",
	Long: `Resolve the repository list the same way update does and print it without
changing anything.

With --json the list is printed as a JSON array of {"owner","repository"} that can
be passed back through --override-repos or OVERRIDE_REPOS.

Examples:
  readme-footer list --org acme
  readme-footer list --org acme --exclude 'acme/*-docs' --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the repositories as JSON")
	listCmd.Flags().StringSliceVar(&listInclude, "include", nil, "Only list repositories matching these owner/repository patterns")
	listCmd.Flags().StringSliceVar(&listExclude, "exclude", nil, "Leave out repositories matching these owner/repository patterns")
	addSettingFlags(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSource(); err != nil {
		return err
	}

	client := github.NewClient(cfg.GitHubToken)
	p := prompt.NewLine(cmd.InOrStdin(), cmd.ErrOrStderr())

	return list(ctx, client, p, cmd.OutOrStdout(), cmd.ErrOrStderr(), sourceOptions(cfg, listInclude, listExclude), listJSON)
}

// list prints the resolved repositories to out and messages about their source to status
func list(ctx context.Context, client github.APIClient, p prompt.Prompter, out, status io.Writer, opts github.SourceOptions, asJSON bool) error {
	repos, origin, err := github.ResolveRepositories(ctx, client, p, status, opts)
	if err != nil {
		return errors.Errorf("failed to resolve repositories: %w", err)
	}

	if asJSON {
		data, err := json.MarshalIndent(repos, "", "  ")
		if err != nil {
			return errors.Errorf("failed to encode repositories: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if err := github.DisplaySelectedRepositories(out, repos); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d repositories from %s\n", len(repos), origin)
	return nil
}
