package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"readmefooter/pkg/config"
	"readmefooter/pkg/github"
)

// addSettingFlags registers a string flag per configuration setting, or only for the named ones
func addSettingFlags(cmd *cobra.Command, names ...string) {
	for _, s := range config.Settings {
		if len(names) > 0 && !slices.Contains(names, s.Flag) {
			continue
		}
		cmd.Flags().String(s.Flag, "", fmt.Sprintf("%s [$%s]", s.Usage, s.Env))
	}
}

// loadConfig resolves the configuration: file, then environment, then flags set on cmd
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadConfigFromPath(configFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, errors.Errorf("failed to load readme-footer config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	for _, s := range config.Settings {
		f := cmd.Flags().Lookup(s.Flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := cfg.Set(s.Flag, f.Value.String()); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// authenticate checks the token before any repository is touched
func authenticate(ctx context.Context, client *github.Client, out, errOut io.Writer) error {
	tokenInfo, err := client.AuthenticatedUser(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "Authentication failed: %v\n\n", err)
		fmt.Fprintf(errOut, "%s\n", github.GetAuthInstructions())
		return err
	}

	fmt.Fprintf(out, "✓ Authenticated as %s\n", tokenInfo.User)
	zerolog.Ctx(ctx).Debug().Str("user", tokenInfo.User).Strs("scopes", tokenInfo.Scopes).Msg("authenticated")
	return nil
}

func sourceOptions(cfg *config.Config, include, exclude []string) github.SourceOptions {
	return github.SourceOptions{
		Organization: cfg.Organization,
		Override:     cfg.OverrideRepos,
		FailedFile:   cfg.FailedRepositoriesFile,
		Include:      include,
		Exclude:      exclude,
	}
}
