package cmd

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"readmefooter/pkg/footer"
)

var previewKeepExisting bool

var previewCmd = &cobra.Command{
	Use:   "preview <README>",
	Short: "Print a local README with the footer merged in",
	Long: `Merge the footer into a local README file and print the result. Nothing is
written and no GitHub API call is made.

An existing footer is replaced unless --keep-existing is given.

Examples:
  readme-footer preview README.md
  readme-footer preview README.md --footer-file footer.html --marker-id acme-footer`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewKeepExisting, "keep-existing", false, "Leave the README unchanged when it already has a footer")
	addSettingFlags(previewCmd, "footer-file", "marker-id")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	footerHTML, err := cfg.LoadFooter()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Errorf("failed to read README: %w", err)
	}

	return preview(cmd.Context(), footer.NewEngine(cfg.MarkerID), cmd.OutOrStdout(), string(data), footerHTML, !previewKeepExisting)
}

func preview(ctx context.Context, engine *footer.Engine, out io.Writer, document, footerHTML string, overwrite bool) error {
	logger := zerolog.Ctx(ctx)

	merged := engine.Merge(document, footerHTML, overwrite)
	if merged == document {
		logger.Info().Str("marker", engine.MarkerID()).Msg("no changes needed")
	} else if !engine.RendersAsHTML(merged) {
		logger.Warn().Str("marker", engine.MarkerID()).Msg("footer will not render as an HTML block")
	}

	_, err := io.WriteString(out, merged)
	return errors.WithStack(err)
}
