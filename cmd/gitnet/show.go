package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gitnet/internal/model"
	"gitnet/internal/repo"
)

var showPatch bool

var showCmd = &cobra.Command{
	Use:   "show <commit>",
	Short: "Show one commit with its files, tags and containing branches",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVarP(&showPatch, "patch", "p", false, "Print the diff as well")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	c, err := a.svc.CommitDetail(ctx, a.info.Path, args[0])
	if err != nil {
		return err
	}
	printCommit(os.Stdout, c)

	if showPatch {
		diff, err := a.svc.Diff(ctx, a.info.Path, repo.DiffRequest{Hash: c.Hash})
		if err != nil {
			return err
		}
		fmt.Println()
		printDiff(os.Stdout, diff)
	}
	return nil
}

func printCommit(w io.Writer, c *model.Commit) {
	fmt.Fprintln(w, styleHash.Render("commit "+c.Hash))
	if len(c.Parents) > 1 {
		short := make([]string, len(c.Parents))
		for i, p := range c.Parents {
			short[i] = model.ShortHash(p)
		}
		fmt.Fprintln(w, "Merge:  "+strings.Join(short, " "))
	}
	fmt.Fprintf(w, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
	fmt.Fprintf(w, "Date:   %s\n", time.Unix(c.Timestamp, 0).Format(time.RFC1123Z))
	if c.Branch != "" {
		fmt.Fprintln(w, "Branch: "+c.Branch)
	}
	if len(c.Tags) > 0 {
		fmt.Fprintln(w, "Tags:   "+strings.Join(c.Tags, ", "))
	}
	if len(c.ContainedIn) > 0 {
		fmt.Fprintln(w, styleDim.Render("In:     "+strings.Join(c.ContainedIn, ", ")))
	}

	fmt.Fprintln(w)
	msg := c.Message
	if msg == "" {
		msg = c.Subject
	}
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		fmt.Fprintln(w, "    "+line)
	}

	if len(c.Files) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, f := range c.Files {
		path := f.Path
		if f.OldPath != "" {
			path = f.OldPath + " -> " + f.Path
		}
		stats := styleAdded.Render(fmt.Sprintf("+%d", f.Additions)) + " " + styleRemoved.Render(fmt.Sprintf("-%d", f.Deletions))
		if f.Binary {
			stats = styleDim.Render("binary")
		}
		fmt.Fprintf(w, " %s %s %s\n", fileChangeLabel(f.Status), path, stats)
	}
}
