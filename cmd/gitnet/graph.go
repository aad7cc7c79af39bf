package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gitnet/internal/errors"
	"gitnet/internal/graph"
	"gitnet/internal/session"
)

var (
	graphFormat string
	graphLimit  int
	graphOutput string
	graphFocus  string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Lay out the commit graph and print it",
	Long: `Compute the positioned commit graph of the repository and print it.

Formats:
  json   Nodes, edges, lanes and bounds as consumed by the web client
  yaml   The same data as YAML
  dot    Graphviz source
  svg    Rendered by the bundled Graphviz

Examples:
  gitnet graph
  gitnet graph --format svg -o history.svg
  gitnet graph --lineage HEAD`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "json", "Output format (json, yaml, dot, svg)")
	graphCmd.Flags().IntVarP(&graphLimit, "limit", "n", 0, "Maximum commits to lay out (default from config)")
	graphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "Write to file instead of stdout")
	graphCmd.Flags().StringVar(&graphFocus, "lineage", "", "Print the ancestors and descendants of this commit instead")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	limit := graphLimit
	if limit <= 0 {
		limit = a.cfg.Log.DefaultLimit
	}
	data, err := session.BuildGraph(ctx, a.svc, a.info.Path, graph.OptionsFromConfig(a.cfg), limit)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if graphOutput != "" {
		f, err := os.Create(graphOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", graphOutput, err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if graphFocus != "" {
		focus, err := resolveFocus(data, graphFocus)
		if err != nil {
			return err
		}
		lineage, err := graph.Lineage(data, focus)
		if err != nil {
			return err
		}
		return writeGraph(ctx, out, lineage, graphFormat)
	}
	return writeGraph(ctx, out, data, graphFormat)
}

// resolveFocus maps HEAD, a full hash or a unique hash prefix to a node id.
func resolveFocus(data *graph.VisualizationData, ref string) (string, error) {
	if ref == "HEAD" {
		ref = data.HeadHash
	}
	if _, ok := data.Node(ref); ok {
		return ref, nil
	}
	match := ""
	for _, n := range data.Nodes {
		if !strings.HasPrefix(n.ID, ref) {
			continue
		}
		if match != "" {
			return "", errors.New(errors.ValidationFailed, "ambiguous commit prefix: "+ref, nil, nil)
		}
		match = n.ID
	}
	if match == "" {
		return "", errors.New(errors.NotFound, "commit not in graph: "+ref, nil, nil)
	}
	return match, nil
}

// writeGraph encodes v in format. dot and svg only apply to a full layout.
func writeGraph(ctx context.Context, w io.Writer, v interface{}, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	case "dot", "svg":
		data, ok := v.(*graph.VisualizationData)
		if !ok {
			return errors.New(errors.ValidationFailed, format+" output needs a full graph", nil, nil)
		}
		dot := graph.ToDOT(data)
		if format == "dot" {
			_, err := io.WriteString(w, dot)
			return err
		}
		svg, err := graph.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	default:
		return errors.New(errors.ValidationFailed, "unsupported format: "+format, nil, nil)
	}
}
