package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gitnet/internal/errors"
	"gitnet/internal/model"
	"gitnet/internal/paths"
	"gitnet/internal/repo"
)

var (
	diffStaged bool
	diffCommit string
)

var diffCmd = &cobra.Command{
	Use:   "diff [file]",
	Short: "Show working tree, staged or commit changes",
	Long: `Show a diff preview. Without flags the working tree is compared with the
index. Binary files and diffs above the configured preview size are summarized
instead of printed.

Examples:
  gitnet diff
  gitnet diff --staged README.md
  gitnet diff --commit 3f2a9c1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffStaged, "staged", false, "Compare the index with HEAD")
	diffCmd.Flags().StringVar(&diffCommit, "commit", "", "Show the changes introduced by this commit")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	req := repo.DiffRequest{Hash: diffCommit, Staged: diffStaged}
	if len(args) == 1 {
		if req.File, err = cliRepoFile(a.info.Path, args[0]); err != nil {
			return err
		}
	}

	diff, err := a.svc.Diff(ctx, a.info.Path, req)
	if err != nil {
		return err
	}
	printDiff(os.Stdout, diff)
	return nil
}

func printDiff(w io.Writer, d *model.DiffResult) {
	switch d.Kind {
	case model.DiffEmpty:
		fmt.Fprintln(w, styleDim.Render("No changes."))
	case model.DiffBinary, model.DiffTooLarge:
		fmt.Fprintln(w, styleDim.Render(d.Message))
	default:
		printDiffText(w, d.Text)
		fmt.Fprintf(w, "%s %s\n",
			styleAdded.Render(fmt.Sprintf("+%d", d.Additions)),
			styleRemoved.Render(fmt.Sprintf("-%d", d.Deletions)))
	}
}

// cliRepoFile resolves a file argument, given relative to the working
// directory, to a path relative to the repository root.
func cliRepoFile(root, arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", errors.New(errors.ValidationFailed, "invalid path: "+arg, err, nil)
	}
	if !paths.IsWithinRepo(abs, root) {
		return "", errors.New(errors.ValidationFailed, "file is outside the repository: "+arg, nil, nil)
	}
	return paths.CanonicalizePath(abs, root)
}
