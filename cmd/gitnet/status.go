package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gitnet/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the working tree status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	res := a.svc.Status(ctx, a.info.Path)
	if res.Degraded() {
		return res.Err
	}
	printStatus(os.Stdout, a.info, res.Data)
	return nil
}

func printStatus(w io.Writer, info *model.RepositoryInfo, st *model.WorkingTreeStatus) {
	head := "On branch " + styleTitle.Render(st.Branch)
	if st.Detached {
		head = "HEAD detached at " + styleHash.Render(model.ShortHash(info.HeadHash))
	}
	fmt.Fprintln(w, head)
	if st.Upstream != "" {
		fmt.Fprintf(w, "Tracking %s, %d ahead, %d behind\n", st.Upstream, st.Ahead, st.Behind)
	}
	switch {
	case info.IsRebasing:
		fmt.Fprintln(w, styleError.Render("Rebase in progress"))
	case info.IsMerging:
		fmt.Fprintln(w, styleError.Render("Merge in progress"))
	}

	var staged, unstaged []model.FileStatus
	for _, f := range st.Files {
		if f.Staged {
			staged = append(staged, f)
		} else {
			unstaged = append(unstaged, f)
		}
	}
	if len(staged) == 0 && len(unstaged) == 0 {
		fmt.Fprintln(w, styleDim.Render("Nothing to commit, working tree clean"))
		return
	}
	printFileGroup(w, "Staged", staged, styleAdded.Render)
	printFileGroup(w, "Not staged", unstaged, styleRemoved.Render)
}

func printFileGroup(w io.Writer, title string, files []model.FileStatus, paint func(...string) string) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, title+":")
	for _, f := range files {
		path := f.Path
		if f.OldPath != "" {
			path = f.OldPath + " -> " + f.Path
		}
		fmt.Fprintf(w, "  %s %s\n", paint(fileStateLabel(f.Status)), path)
	}
}
