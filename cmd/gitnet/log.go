package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gitnet/internal/repo"
)

var (
	logLimit  int
	logSkip   int
	logAuthor string
	logSince  string
	logUntil  string
	logGrep   string
	logAll    bool
	logJSON   bool
)

var logCmd = &cobra.Command{
	Use:   "log [path]",
	Short: "Show commit history with inferred branches",
	Long: `Show commits newest first, annotated with the branch each one was attributed
to, its tags and its author.

Examples:
  gitnet log -n 20
  gitnet log --all --author jane
  gitnet log --since "2 weeks ago" src/server.go`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 50, "Number of commits to show")
	logCmd.Flags().IntVar(&logSkip, "skip", 0, "Skip this many commits")
	logCmd.Flags().StringVar(&logAuthor, "author", "", "Only commits by this author")
	logCmd.Flags().StringVar(&logSince, "since", "", "Only commits after this date")
	logCmd.Flags().StringVar(&logUntil, "until", "", "Only commits before this date")
	logCmd.Flags().StringVar(&logGrep, "grep", "", "Only commits whose message matches")
	logCmd.Flags().BoolVar(&logAll, "all", false, "Include every branch, not just HEAD")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	opts := repo.LogOptions{
		Limit:   logLimit,
		Offset:  logSkip,
		Author:  logAuthor,
		Since:   logSince,
		Until:   logUntil,
		Grep:    logGrep,
		AllRefs: logAll,
	}
	if len(args) == 1 {
		rel, err := cliRepoFile(a.info.Path, args[0])
		if err != nil {
			return err
		}
		opts.Path = rel
	}

	res := a.svc.Commits(ctx, a.info.Path, opts)
	if res.Degraded() {
		return res.Err
	}

	if logJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Data)
	}
	if len(res.Data) == 0 {
		fmt.Println(styleDim.Render("No commits."))
		return nil
	}
	now := time.Now()
	for _, c := range res.Data {
		fmt.Println(commitLine(c, now))
	}
	return nil
}
