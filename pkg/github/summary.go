package github

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var statusColors = map[Status]*color.Color{
	StatusSkipped:    color.New(38, 5, 214),
	StatusSuccessful: color.New(color.FgGreen),
	StatusFailed:     color.New(color.FgRed),
	StatusArchived:   color.New(color.FgCyan),
}

// DisplaySelectedRepositories prints the repositories of a run as a table
func DisplaySelectedRepositories(out io.Writer, repos []Repository) error {
	data := pterm.TableData{{"#", "Owner", "Repository"}}
	for i, repo := range repos {
		data = append(data, []string{strconv.Itoa(i), repo.Owner, repo.Repository})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Selected Repositories")
	fmt.Fprintln(out, table)
	return nil
}

// PrintSummary prints one line per status, colored by outcome
func PrintSummary(out io.Writer, statuses []RepositoryStatus) {
	fmt.Fprintln(out, "\nSummary:")
	for _, status := range statuses {
		label := string(status.Status)
		if c, ok := statusColors[status.Status]; ok {
			label = c.Sprint(label)
		}
		fmt.Fprintf(out, "- %s - %s - %s\n", repoColor.Sprint(status.FullName()), label, status.Message)
	}
}
