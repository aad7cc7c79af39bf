package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gitnet/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow repository changes and graph refreshes",
	Long: `Watch the repository metadata and print every change notification and the
graph refresh it triggers until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// Watching is the point of this command.
	a.cfg.Watcher.Enabled = true
	sessions := session.New(a.svc, session.Options{Config: a.cfg, Logger: a.logger})
	defer func() { _ = sessions.Shutdown() }()

	updates, cancel := sessions.Subscribe(a.info.Path)
	defer cancel()
	if _, err := sessions.Open(ctx, a.info.Path); err != nil {
		return err
	}
	fmt.Printf("%s watching %s\n", styleTitle.Render("gitnet"), a.info.Path)

	return followUpdates(ctx, os.Stdout, updates)
}

// followUpdates prints updates until ctx ends or the stream closes.
func followUpdates(ctx context.Context, w io.Writer, updates <-chan session.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			fmt.Fprintln(w, describeUpdate(u))
			if u.Type == session.UpdateClosed {
				return nil
			}
		}
	}
}

func describeUpdate(u session.Update) string {
	ts := styleDim.Render(u.Timestamp.Format("15:04:05"))
	switch u.Type {
	case session.UpdateEvent:
		if u.Event == nil {
			return ts + " event"
		}
		return fmt.Sprintf("%s %s %s", ts, styleHash.Render(string(u.Event.Type)), styleDim.Render(u.Event.Path))
	case session.UpdateGraph:
		if u.Degraded {
			msg := fmt.Sprintf("%s %s %s", ts, styleError.Render("degraded"), u.Reason)
			if u.Graph != nil {
				msg += styleDim.Render(fmt.Sprintf(" (showing %d commits from last good graph)", len(u.Graph.Nodes)))
			}
			return msg
		}
		if u.Graph == nil {
			return ts + " graph"
		}
		return fmt.Sprintf("%s %s %d commits, %d lanes, head %s", ts,
			styleAdded.Render("graph"), len(u.Graph.Nodes), len(u.Graph.Lanes),
			styleHash.Render(shortOrNone(u.Graph.HeadHash)))
	case session.UpdateError:
		return fmt.Sprintf("%s %s %s", ts, styleError.Render("error"), u.Reason)
	default:
		return fmt.Sprintf("%s %s", ts, u.Type)
	}
}

func shortOrNone(hash string) string {
	if hash == "" {
		return "none"
	}
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
