// Package graph positions commits on a lane grid for rendering and answers
// reachability queries over the resulting DAG.
package graph

import (
	"sort"

	"gitnet/internal/config"
	"gitnet/internal/model"
	"gitnet/internal/parser"
)

// Shape is the rendered shape of a node.
type Shape string

const (
	ShapeCircle  Shape = "circle"
	ShapeDiamond Shape = "diamond"
	ShapeSquare  Shape = "square"
)

// EdgeType distinguishes edges into merge commits.
type EdgeType string

const (
	EdgeNormal EdgeType = "normal"
	EdgeMerge  EdgeType = "merge"
)

// defaultBranch is assumed for commits whose branch could not be inferred.
const defaultBranch = "main"

// Options holds the layout geometry.
type Options struct {
	LaneWidth    float64 `json:"laneWidth"`
	RowHeight    float64 `json:"rowHeight"`
	NodeSize     float64 `json:"nodeSize"`
	HeadNodeSize float64 `json:"headNodeSize"`
}

// DefaultOptions returns the default geometry.
func DefaultOptions() Options {
	return Options{
		LaneWidth:    30,
		RowHeight:    40,
		NodeSize:     10,
		HeadNodeSize: 14,
	}
}

// OptionsFromConfig reads the geometry from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return DefaultOptions()
	}
	return Options{
		LaneWidth:    cfg.Layout.LaneWidth,
		RowHeight:    cfg.Layout.RowHeight,
		NodeSize:     cfg.Layout.NodeSize,
		HeadNodeSize: cfg.Layout.HeadNodeSize,
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LaneWidth <= 0 {
		o.LaneWidth = d.LaneWidth
	}
	if o.RowHeight <= 0 {
		o.RowHeight = d.RowHeight
	}
	if o.NodeSize <= 0 {
		o.NodeSize = d.NodeSize
	}
	if o.HeadNodeSize <= 0 {
		o.HeadNodeSize = d.HeadNodeSize
	}
	return o
}

// Input is everything a layout pass reads.
type Input struct {
	Commits  []model.Commit `json:"commits"`
	Branches []model.Branch `json:"branches"`
	Stashes  []model.Stash  `json:"stashes,omitempty"`
	HeadHash string         `json:"headHash,omitempty"`
}

// Point is a position in layout coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphNode is a positioned commit or stash.
type GraphNode struct {
	ID       string        `json:"id"`
	Commit   *model.Commit `json:"commit,omitempty"`
	Stash    *model.Stash  `json:"stash,omitempty"`
	Branch   string        `json:"branch"`
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Lane     int           `json:"lane"`
	Color    string        `json:"color"`
	Shape    Shape         `json:"shape"`
	Size     float64       `json:"size"`
	IsHead   bool          `json:"isHead,omitempty"`
	Parents  []string      `json:"parents"`
	Children []string      `json:"children"`
}

// GraphEdge connects a parent node to a child node.
type GraphEdge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Color  string   `json:"color"`
	Type   EdgeType `json:"type"`
	Points []Point  `json:"points"`
}

// LaneSegment is the vertical rail drawn behind the nodes of one lane.
type LaneSegment struct {
	Lane   int     `json:"lane"`
	X      float64 `json:"x"`
	MinY   float64 `json:"minY"`
	MaxY   float64 `json:"maxY"`
	Color  string  `json:"color"`
	Branch string  `json:"branch"`
}

// Bounds is the bounding box of all nodes.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// VisualizationData is the output of a layout pass.
type VisualizationData struct {
	Nodes    []GraphNode    `json:"nodes"`
	Edges    []GraphEdge    `json:"edges"`
	Lanes    []LaneSegment  `json:"lanes"`
	Branches []model.Branch `json:"branches"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Bounds   Bounds         `json:"bounds"`
	HeadHash string         `json:"headHash,omitempty"`
}

// Node returns the node with the given id.
func (d *VisualizationData) Node(id string) (*GraphNode, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// entry is one row of the layout before placement.
type entry struct {
	id        string
	timestamp int64
	branch    string
	parents   []string
	commit    *model.Commit
	stash     *model.Stash
}

// Layout places commits and stashes on the lane grid. It is a pure function
// of its arguments.
func Layout(in Input, opts Options) *VisualizationData {
	opts = opts.withDefaults()

	entries := collectEntries(in)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].timestamp < entries[j].timestamp
	})

	colors := make(map[string]string, len(in.Branches))
	for _, b := range in.Branches {
		if b.Color != "" {
			if _, seen := colors[b.Name]; !seen {
				colors[b.Name] = b.Color
			}
		}
	}
	colorOf := func(branch string) string {
		if c, found := colors[branch]; found {
			return c
		}
		return parser.BranchColor(branch)
	}

	lanes := make(map[string]int)
	var laneOwners []string
	nextLane := 1
	laneOf := func(branch string) int {
		if lane, found := lanes[branch]; found {
			return lane
		}
		lane := nextLane
		if parser.IsPrimaryBranch(branch) {
			lane = 0
		} else {
			nextLane++
		}
		lanes[branch] = lane
		for len(laneOwners) <= lane {
			laneOwners = append(laneOwners, "")
		}
		if laneOwners[lane] == "" {
			laneOwners[lane] = branch
		}
		return lane
	}

	data := &VisualizationData{
		Nodes:    make([]GraphNode, 0, len(entries)),
		Edges:    make([]GraphEdge, 0, len(entries)),
		Lanes:    make([]LaneSegment, 0),
		HeadHash: in.HeadHash,
	}
	index := make(map[string]int, len(entries))

	for i, e := range entries {
		lane := laneOf(e.branch)
		node := GraphNode{
			ID:       e.id,
			Commit:   e.commit,
			Stash:    e.stash,
			Branch:   e.branch,
			X:        float64(lane+1) * opts.LaneWidth,
			Y:        float64(i+1) * opts.RowHeight,
			Lane:     lane,
			Color:    colorOf(e.branch),
			Shape:    ShapeCircle,
			Size:     opts.NodeSize,
			Parents:  e.parents,
			Children: []string{},
		}
		switch {
		case e.stash != nil:
			node.Shape = ShapeSquare
		case len(e.parents) > 1:
			node.Shape = ShapeDiamond
		}
		if in.HeadHash != "" && e.id == in.HeadHash {
			node.IsHead = true
			node.Size = opts.HeadNodeSize
		}
		index[e.id] = len(data.Nodes)
		data.Nodes = append(data.Nodes, node)
	}

	for i := range data.Nodes {
		child := &data.Nodes[i]
		edgeType := EdgeNormal
		if child.Shape == ShapeDiamond {
			edgeType = EdgeMerge
		}
		for _, p := range child.Parents {
			pi, found := index[p]
			if !found {
				continue
			}
			parent := &data.Nodes[pi]
			parent.Children = append(parent.Children, child.ID)
			data.Edges = append(data.Edges, GraphEdge{
				ID:     parent.ID + "-" + child.ID,
				Source: parent.ID,
				Target: child.ID,
				Color:  child.Color,
				Type:   edgeType,
				Points: edgePoints(parent, child),
			})
		}
	}

	data.Lanes = laneSegments(data.Nodes, laneOwners, opts, colorOf)
	data.Branches = placeBranches(in.Branches, lanes)
	data.Bounds, data.Width, data.Height = bounds(data.Nodes, opts)
	return data
}

// collectEntries turns commits and stashes into layout rows. Commits are
// reversed first so that a newest-first log keeps parents ahead of children
// among equal timestamps.
func collectEntries(in Input) []entry {
	entries := make([]entry, 0, len(in.Commits)+len(in.Stashes))
	index := make(map[string]int, len(in.Commits))
	branchOf := make(map[string]string, len(in.Commits))

	for i := len(in.Commits) - 1; i >= 0; i-- {
		c := in.Commits[i]
		if _, dup := index[c.Hash]; dup || c.Hash == "" {
			continue
		}
		branch := c.Branch
		if branch == "" {
			branch = defaultBranch
		}
		branchOf[c.Hash] = branch
		index[c.Hash] = len(entries)
		entries = append(entries, entry{
			id:        c.Hash,
			timestamp: c.Timestamp,
			branch:    branch,
			parents:   nonNil(c.Parents),
			commit:    &c,
		})
	}

	for i := len(in.Stashes) - 1; i >= 0; i-- {
		s := in.Stashes[i]
		baseBranch, found := branchOf[s.BaseHash]
		if !found {
			continue
		}
		if at, exists := index[s.Hash]; exists {
			// Logs over every ref include the stash commit itself.
			entries[at].stash = &s
			entries[at].branch = baseBranch
			entries[at].parents = []string{s.BaseHash}
			continue
		}
		index[s.Hash] = len(entries)
		entries = append(entries, entry{
			id:        s.Hash,
			timestamp: s.Timestamp,
			branch:    baseBranch,
			parents:   []string{s.BaseHash},
			stash:     &s,
		})
	}
	return entries
}

func edgePoints(parent, child *GraphNode) []Point {
	if parent.Lane == child.Lane {
		return []Point{{parent.X, parent.Y}, {child.X, child.Y}}
	}
	return []Point{
		{parent.X, parent.Y},
		{child.X, parent.Y},
		{child.X, child.Y},
	}
}

func laneSegments(nodes []GraphNode, owners []string, opts Options, colorOf func(string) string) []LaneSegment {
	type span struct {
		min, max float64
		set      bool
	}
	spans := make([]span, len(owners))
	for _, n := range nodes {
		s := &spans[n.Lane]
		if !s.set || n.Y < s.min {
			s.min = n.Y
		}
		if !s.set || n.Y > s.max {
			s.max = n.Y
		}
		s.set = true
	}

	segments := make([]LaneSegment, 0, len(owners))
	for lane, s := range spans {
		if !s.set {
			continue
		}
		segments = append(segments, LaneSegment{
			Lane:   lane,
			X:      float64(lane+1) * opts.LaneWidth,
			MinY:   s.min,
			MaxY:   s.max,
			Color:  colorOf(owners[lane]),
			Branch: owners[lane],
		})
	}
	return segments
}

// placeBranches copies branches with the lane each one was given, or
// model.NoLane when none of its commits were laid out.
func placeBranches(branches []model.Branch, lanes map[string]int) []model.Branch {
	out := make([]model.Branch, len(branches))
	for i, b := range branches {
		b.Lane = model.NoLane
		if lane, found := lanes[b.Name]; found {
			b.Lane = lane
		}
		out[i] = b
	}
	return out
}

func bounds(nodes []GraphNode, opts Options) (Bounds, float64, float64) {
	if len(nodes) == 0 {
		return Bounds{}, 0, 0
	}
	b := Bounds{MinX: nodes[0].X, MinY: nodes[0].Y, MaxX: nodes[0].X, MaxY: nodes[0].Y}
	for _, n := range nodes[1:] {
		b.MinX = min(b.MinX, n.X)
		b.MinY = min(b.MinY, n.Y)
		b.MaxX = max(b.MaxX, n.X)
		b.MaxY = max(b.MaxY, n.Y)
	}
	return b, b.MaxX + opts.LaneWidth, b.MaxY + opts.RowHeight
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
