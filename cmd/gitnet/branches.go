package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"gitnet/internal/model"
)

var branchesRemote bool

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List branches in their graph colors",
	Long: `List local branches, and remote ones with --remote, in the colors the graph
uses for them. The current branch is marked with an asterisk.`,
	Args: cobra.NoArgs,
	RunE: runBranches,
}

func init() {
	branchesCmd.Flags().BoolVarP(&branchesRemote, "remote", "r", false, "Include remote-only branches")
	rootCmd.AddCommand(branchesCmd)
}

func runBranches(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	res := a.svc.Branches(ctx, a.info.Path)
	if res.Degraded() {
		return res.Err
	}
	printBranches(os.Stdout, res.Data, branchesRemote)
	return nil
}

// printBranches lists branches sorted with the current one first.
func printBranches(w io.Writer, branches []model.Branch, includeRemote bool) {
	list := make([]model.Branch, 0, len(branches))
	for _, b := range branches {
		if b.IsLocal || includeRemote {
			list = append(list, b)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IsCurrent != list[j].IsCurrent {
			return list[i].IsCurrent
		}
		return list[i].Name < list[j].Name
	})

	for _, b := range list {
		marker := "  "
		name := branchStyle(b.Color).Render(b.Name)
		if b.IsCurrent {
			marker = "* "
			name = styleCurrent.Inherit(branchStyle(b.Color)).Render(b.Name)
		}
		line := marker + name + " " + styleHash.Render(model.ShortHash(b.Target))
		switch {
		case b.Upstream != "":
			line += " " + styleDim.Render("-> "+b.Upstream)
		case !b.IsLocal:
			line += " " + styleDim.Render("("+b.Remote+")")
		}
		fmt.Fprintln(w, line)
	}
}
