package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"readmefooter/pkg/prompt"
)

// ListPageSize is the page size used when listing organization repositories
const ListPageSize = 100

// Origin names where a repository list came from
type Origin string

const (
	OriginOverride     Origin = "override"
	OriginFailedFile   Origin = "failed-file"
	OriginOrganization Origin = "organization"
)

// SourceOptions selects the repositories of a run
type SourceOptions struct {
	Organization string
	// Override is a JSON array of {owner, repository}; when set it wins over every other source
	Override   string
	FailedFile string
	Include    []string
	Exclude    []string
}

// ParseRepositories parses a JSON array of {owner, repository}
func ParseRepositories(raw string) ([]Repository, error) {
	var repos []Repository
	if err := json.Unmarshal([]byte(raw), &repos); err != nil {
		return nil, errors.Errorf("invalid repository list %q: %w", raw, err)
	}
	return repos, nil
}

// ListPublicRepositories pages through an organization's public repositories, skipping forks and archived ones
func ListPublicRepositories(ctx context.Context, client APIClient, org string) ([]Repository, error) {
	logger := zerolog.Ctx(ctx)
	repos := []Repository{}

	for page := 1; ; page++ {
		batch, err := client.ListOrganizationRepositories(ctx, org, page, ListPageSize)
		if err != nil {
			return nil, errors.Errorf("listing repositories of %s: %w", org, err)
		}

		for _, repo := range batch {
			if repo.Fork || repo.Archived {
				logger.Debug().Str("repository", repo.FullName()).Bool("fork", repo.Fork).
					Bool("archived", repo.Archived).Msg("skipping repository")
				continue
			}
			repos = append(repos, repo.Repository)
		}

		logger.Debug().Int("page", page).Int("count", len(batch)).Msg("listed repositories")

		if len(batch) < ListPageSize {
			break
		}
	}

	return repos, nil
}

// ResolveRepositories picks the repository list of a run: the override list, then the
// failure file of a previous run if the operator accepts it, then the organization listing.
// Include and exclude patterns are applied to whichever list was chosen.
func ResolveRepositories(ctx context.Context, client APIClient, p prompt.Prompter, out io.Writer, opts SourceOptions) ([]Repository, Origin, error) {
	repos, origin, err := resolveSource(ctx, client, p, out, opts)
	if err != nil {
		return nil, origin, err
	}

	filtered, err := FilterRepositories(repos, opts.Include, opts.Exclude)
	if err != nil {
		return nil, origin, err
	}

	zerolog.Ctx(ctx).Info().Str("origin", string(origin)).Int("resolved", len(repos)).
		Int("selected", len(filtered)).Msg("resolved repositories")

	return filtered, origin, nil
}

func resolveSource(ctx context.Context, client APIClient, p prompt.Prompter, out io.Writer, opts SourceOptions) ([]Repository, Origin, error) {
	if strings.TrimSpace(opts.Override) != "" {
		repos, err := ParseRepositories(opts.Override)
		if err != nil {
			return nil, OriginOverride, err
		}
		if len(repos) > 0 {
			return repos, OriginOverride, nil
		}
	}

	if opts.FailedFile != "" && FailedRepositoriesFileExists(opts.FailedFile) {
		load, err := p.Confirm(fmt.Sprintf("Found %s. Do you want to load the repositories to be used from this file?", opts.FailedFile))
		if err != nil {
			return nil, OriginFailedFile, err
		}
		if load {
			repos, err := LoadFailedRepositories(opts.FailedFile)
			if err != nil {
				return nil, OriginFailedFile, err
			}
			fmt.Fprintf(out, "Loaded %d repositories from %s\n", len(repos), opts.FailedFile)
			return repos, OriginFailedFile, nil
		}
	}

	if opts.Organization == "" {
		return nil, OriginOrganization, errors.New("an organization is required when no repository list is given")
	}

	repos, err := ListPublicRepositories(ctx, client, opts.Organization)
	return repos, OriginOrganization, err
}
