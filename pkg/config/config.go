package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"readmefooter/pkg/footer"
	"readmefooter/pkg/github"
)

// ErrMissingSettings is returned by Validate when required settings are empty
var ErrMissingSettings = errors.Base("missing required settings")

// Config represents the readme-footer configuration
type Config struct {
	GitHubToken            string `yaml:"github_token"`
	Organization           string `yaml:"org"`
	UpdateBranchName       string `yaml:"update_branch_name"`
	OverrideRepos          string `yaml:"override_repos"`
	FooterFile             string `yaml:"footer_file"`
	BaseBranch             string `yaml:"base_branch"`
	MarkerID               string `yaml:"marker_id"`
	FailedRepositoriesFile string `yaml:"failed_repositories_file"`
}

// Setting ties a configuration field to its command line flag and environment variable
type Setting struct {
	Flag  string
	Env   string
	Usage string
	field func(c *Config) *string
}

// Settings lists every configurable value in the order they are documented
var Settings = []Setting{
	{Flag: "github-token", Env: "GITHUB_TOKEN", Usage: "GitHub personal access token",
		field: func(c *Config) *string { return &c.GitHubToken }},
	{Flag: "org", Env: "ORG", Usage: "GitHub organization whose public repositories are updated",
		field: func(c *Config) *string { return &c.Organization }},
	{Flag: "update-branch-name", Env: "UPDATE_BRANCH_NAME", Usage: "Branch the README change is committed to",
		field: func(c *Config) *string { return &c.UpdateBranchName }},
	{Flag: "override-repos", Env: "OVERRIDE_REPOS", Usage: `JSON array of {"owner","repository"} to use instead of the organization`,
		field: func(c *Config) *string { return &c.OverrideRepos }},
	{Flag: "footer-file", Env: "FOOTER_FILE", Usage: "HTML file with the footer (default: built-in footer)",
		field: func(c *Config) *string { return &c.FooterFile }},
	{Flag: "base-branch", Env: "BASE_BRANCH", Usage: "Branch updates are cut from and merged into (default: develop)",
		field: func(c *Config) *string { return &c.BaseBranch }},
	{Flag: "marker-id", Env: "MARKER_ID", Usage: "id of the element that wraps the footer (default: " + footer.DefaultMarkerID + ")",
		field: func(c *Config) *string { return &c.MarkerID }},
	{Flag: "failed-file", Env: "FAILED_REPOSITORIES_FILE", Usage: "File failed repositories are saved to and loaded from",
		field: func(c *Config) *string { return &c.FailedRepositoriesFile }},
}

// LoadConfig loads configuration from the default location
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadConfigFromPath(configPath)
}

// LoadConfigFromPath loads configuration from a specific path
func LoadConfigFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil // Return empty config if file doesn't exist
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".readme-footer", "config.yaml"), nil
}

// envFlagName is the flag name ff maps to env, GITHUB_TOKEN -> github-token
func envFlagName(env string) string {
	return strings.ToLower(strings.ReplaceAll(env, "_", "-"))
}

// ApplyEnv overrides values with the environment variables that are set
func (c *Config) ApplyEnv() error {
	fs := flag.NewFlagSet("readme-footer-env", flag.ContinueOnError)
	for _, s := range Settings {
		fs.String(envFlagName(s.Env), "", s.Usage)
	}

	if err := ff.Parse(fs, []string{}, ff.WithEnvVarNoPrefix()); err != nil {
		return errors.Errorf("failed to read environment: %w", err)
	}

	byEnvFlag := make(map[string]Setting, len(Settings))
	for _, s := range Settings {
		byEnvFlag[envFlagName(s.Env)] = s
	}

	fs.Visit(func(f *flag.Flag) {
		if s, ok := byEnvFlag[f.Name]; ok {
			*s.field(c) = f.Value.String()
		}
	})

	return nil
}

// Set assigns the setting registered under flag name
func (c *Config) Set(flagName, value string) error {
	for _, s := range Settings {
		if s.Flag == flagName {
			*s.field(c) = value
			return nil
		}
	}
	return errors.Errorf("unknown setting %q", flagName)
}

// ApplyDefaults fills optional settings that are still empty
func (c *Config) ApplyDefaults() {
	if c.BaseBranch == "" {
		c.BaseBranch = github.DefaultBaseBranch
	}
	if c.MarkerID == "" {
		c.MarkerID = footer.DefaultMarkerID
	}
	if c.FailedRepositoriesFile == "" {
		c.FailedRepositoriesFile = github.DefaultFailedRepositoriesFile
	}
}

// Validate reports every missing required setting at once
func (c *Config) Validate() error {
	missing := c.missingSource(true)

	if strings.TrimSpace(c.UpdateBranchName) == "" {
		missing = append(missing, "UPDATE_BRANCH_NAME (--update-branch-name)")
	}

	return missingError(missing)
}

// ValidateSource checks only what is needed to resolve the repository list.
// The token is optional when an override list is given.
func (c *Config) ValidateSource() error {
	return missingError(c.missingSource(strings.TrimSpace(c.OverrideRepos) == ""))
}

func (c *Config) missingSource(requireToken bool) []string {
	var missing []string

	if requireToken && strings.TrimSpace(c.GitHubToken) == "" {
		missing = append(missing, "GITHUB_TOKEN (--github-token)")
	}

	if strings.TrimSpace(c.Organization) == "" && strings.TrimSpace(c.OverrideRepos) == "" {
		missing = append(missing, "ORG (--org) or OVERRIDE_REPOS (--override-repos)")
	}

	return missing
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return errors.WithDetails(
		errors.Errorf("%w: %s", ErrMissingSettings, strings.Join(missing, ", ")),
		"settings", missing,
	)
}

// LoadFooter returns the footer HTML from FooterFile, or the built-in footer
// when unset. A footer that would not stay inside the marker container is rejected.
func (c *Config) LoadFooter() (string, error) {
	if c.FooterFile == "" {
		return footer.DefaultFooter, nil
	}

	data, err := os.ReadFile(c.FooterFile)
	if err != nil {
		return "", errors.Errorf("failed to read footer file: %w", err)
	}

	content := string(data)
	if err := footer.NewEngine(c.MarkerID).Validate(content); err != nil {
		return "", errors.Errorf("invalid footer file %s: %w", c.FooterFile, err)
	}
	return content, nil
}
