package github

import (
	"context"
	"strings"

	"github.com/google/go-github/v66/github"
	"gitlab.com/tozd/go/errors"
)

// ErrInsufficientScopes is returned for classic tokens without repo or public_repo
var ErrInsufficientScopes = errors.Base("GitHub token missing required permissions")

// TokenInfo contains information about the authenticated token
type TokenInfo struct {
	User   string   `json:"user"`
	Scopes []string `json:"scopes"`
}

// AuthenticatedUser validates the token by fetching the user it belongs to
func (c *Client) AuthenticatedUser(ctx context.Context) (*TokenInfo, error) {
	var (
		user *github.User
		resp *github.Response
	)
	err := c.call(ctx, "authenticated user", func() error {
		var err error
		user, resp, err = c.client.Users.Get(ctx, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	scopes := []string{}
	if resp != nil {
		if header := resp.Header.Get("X-OAuth-Scopes"); header != "" {
			scopes = strings.Split(strings.ReplaceAll(header, " ", ""), ",")
		}
	}

	info := &TokenInfo{
		User:   user.GetLogin(),
		Scopes: scopes,
	}

	if err := validatePermissions(info.Scopes); err != nil {
		return info, err
	}

	return info, nil
}

// validatePermissions checks classic token scopes. Fine-grained tokens report
// no scopes and are left to fail on the first write.
func validatePermissions(scopes []string) error {
	if len(scopes) == 0 {
		return nil
	}

	for _, scope := range scopes {
		if scope == "repo" || scope == "public_repo" {
			return nil
		}
	}

	return errors.WithDetails(
		errors.Errorf("%w: has %s, needs repo or public_repo", ErrInsufficientScopes, strings.Join(scopes, ", ")),
		"scopes", scopes,
	)
}

// GetAuthInstructions returns instructions for setting up GitHub authentication
func GetAuthInstructions() string {
	return `GitHub authentication is required. Please set up authentication using one of the following methods:

1. Environment Variable (Recommended for CI/CD):
   export GITHUB_TOKEN="your_personal_access_token"

2. Command line flag:
   readme-footer update --github-token "your_personal_access_token"

3. Configuration File:
   Add the following to ~/.readme-footer/config.yaml:

   github_token: "your_personal_access_token"

The token must be allowed to push branches, open and merge pull requests
and, when archiving, administer the repositories (classic scope: repo).`
}
