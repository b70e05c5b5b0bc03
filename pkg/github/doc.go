// Package github adds a standard footer to the README of many GitHub repositories.
//
// The package includes:
// - APIClient, the GitHub REST operations the update needs, and Client, its go-github implementation
// - Updater, which commits the footer of one repository through a pull request that is merged right away
// - Batch, which runs the updater over a list of repositories and prints a summary
// - ResolveRepositories, which picks the repositories from an override list, a failure file or an organization
// - Structured errors with optional retries of rate limit and network failures
package github
