package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gitnet/internal/errors"
	"gitnet/internal/graph"
	"gitnet/internal/repo"
	"gitnet/internal/session"
	"gitnet/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Sessions  []string               `json:"sessions"`
	Watcher   map[string]interface{} `json:"watcher"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   version.Version,
		Sessions:  s.sessions.Sessions(),
		Watcher:   s.sessions.WatcherStats(),
	}, http.StatusOK)
}

type openRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleOpenRepo(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		BadRequest(w, "path is required")
		return
	}

	info, err := s.sessions.Open(r.Context(), req.Path)
	if err != nil {
		WriteGitNetError(w, err)
		return
	}
	WriteJSON(w, info, http.StatusOK)
}

func (s *Server) handleCloseRepo(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !decodeBody(w, r, &req) {
		return
	}
	root, ok := s.resolveRepo(w, req.Path)
	if !ok {
		return
	}
	if err := s.sessions.Close(root); err != nil {
		WriteGitNetError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRepoInfo(w http.ResponseWriter, r *http.Request) {
	root, ok := s.resolveRepo(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	info, _ := s.sessions.Info(root)
	WriteJSON(w, info, http.StatusOK)
}

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, map[string]interface{}{"repos": s.sessions.Sessions()}, http.StatusOK)
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	root, ok := s.resolveRepo(w, q.Get("path"))
	if !ok {
		return
	}

	opts := repo.LogOptions{
		Author:  q.Get("author"),
		Since:   q.Get("since"),
		Until:   q.Get("until"),
		Grep:    q.Get("grep"),
		AllRefs: QueryParamBool(r, "all", false),
	}
	var err error
	if opts.Limit, err = QueryParamInt(r, "limit", 0); err != nil {
		WriteGitNetError(w, err)
		return
	}
	if opts.Offset, err = QueryParamInt(r, "offset", 0); err != nil {
		WriteGitNetError(w, err)
		return
	}
	if file := q.Get("file"); file != "" {
		files, err := repoFiles(root, []string{file})
		if err != nil {
			WriteGitNetError(w, err)
			return
		}
		opts.Path = files[0]
	}

	WriteJSON(w, s.svc.Commits(r.Context(), root, opts), http.StatusOK)
}

func (s *Server) handleCommitDetail(w http.ResponseWriter, r *http.Request) {
	root, ok := s.resolveRepo(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	commit, err := s.svc.CommitDetail(r.Context(), root, chi.URLParam(r, "hash"))
	if err != nil {
		WriteGitNetError(w, err)
		return
	}
	WriteJSON(w, commit, http.StatusOK)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	root, ok := s.resolveRepo(w, q.Get("path"))
	if !ok {
		return
	}

	req := repo.DiffRequest{
		Hash:   q.Get("hash"),
		Staged: QueryParamBool(r, "staged", false),
	}
	if file := q.Get("file"); file != "" {
		files, err := repoFiles(root, []string{file})
		if err != nil {
			WriteGitNetError(w, err)
			return
		}
		req.File = files[0]
	}

	diff, err := s.svc.Diff(r.Context(), root, req)
	if err != nil {
		WriteGitNetError(w, err)
		return
	}
	WriteJSON(w, diff, http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	root, ok := s.resolveRepo(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	WriteJSON(w, s.svc.Status(r.Context(), root), http.StatusOK)
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	root, ok := s.resolveRepo(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	WriteJSON(w, s.svc.Branches(r.Context(), root), http.StatusOK)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	root, ok := s.resolveRepo(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	WriteJSON(w, s.svc.Tags(r.Context(), root), http.StatusOK)
}

func (s *Server) handleStashes(w http.ResponseWriter, r *http.Request) {
	root, ok := s.resolveRepo(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	WriteJSON(w, s.svc.Stashes(r.Context(), root), http.StatusOK)
}

func (s *Server) handleHotFiles(w http.ResponseWriter, r *http.Request) {
	root, ok := s.resolveRepo(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	limit, err := QueryParamInt(r, "limit", 20)
	if err != nil {
		WriteGitNetError(w, err)
		return
	}
	WriteJSON(w, s.svc.HotFiles(r.Context(), root, limit, r.URL.Query().Get("since")), http.StatusOK)
}

func (s *Server) handleContributors(w http.ResponseWriter, r *http.Request) {
	root, ok := s.resolveRepo(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	WriteJSON(w, s.svc.Contributors(r.Context(), root), http.StatusOK)
}

// currentGraph returns the session's latest layout, computing one when the
// first refresh has not been delivered yet.
func (s *Server) currentGraph(ctx context.Context, root string) (session.Update, error) {
	if u, ok := s.sessions.Current(root); ok && u.Graph != nil {
		return u, nil
	}
	data, err := session.BuildGraph(ctx, s.svc, root, graph.OptionsFromConfig(s.cfg), s.cfg.Log.DefaultLimit)
	if err != nil {
		return session.Update{}, err
	}
	return session.Update{
		Type:      session.UpdateGraph,
		RepoPath:  root,
		Graph:     data,
		Timestamp: time.Now(),
	}, nil
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	root, ok := s.resolveRepo(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	u, err := s.currentGraph(r.Context(), root)
	if err != nil {
		WriteGitNetError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		WriteJSON(w, u, http.StatusOK)
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(graph.ToDOT(u.Graph)))
	case "svg":
		svg, err := graph.RenderSVG(r.Context(), graph.ToDOT(u.Graph))
		if err != nil {
			WriteGitNetError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	default:
		BadRequest(w, "invalid format: must be json, dot or svg")
	}
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	root, ok := s.resolveRepo(w, q.Get("path"))
	if !ok {
		return
	}
	hash := q.Get("hash")
	if hash == "" {
		BadRequest(w, "hash is required")
		return
	}

	u, err := s.currentGraph(r.Context(), root)
	if err != nil {
		WriteGitNetError(w, err)
		return
	}
	lineage, err := graph.Lineage(u.Graph, hash)
	if err != nil {
		WriteGitNetError(w, err)
		return
	}
	WriteJSON(w, lineage, http.StatusOK)
}

// CommandsResponse is a page of the command log.
type CommandsResponse struct {
	Entries  interface{} `json:"entries"`
	Total    int         `json:"total"`
	Capacity int         `json:"capacity"`
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		WriteJSON(w, CommandsResponse{Entries: []interface{}{}}, http.StatusOK)
		return
	}
	offset, err := QueryParamInt(r, "offset", 0)
	if err != nil {
		WriteGitNetError(w, err)
		return
	}
	limit, err := QueryParamInt(r, "limit", 0)
	if err != nil {
		WriteGitNetError(w, err)
		return
	}
	WriteJSON(w, CommandsResponse{
		Entries:  s.commands.Entries(offset, limit),
		Total:    s.commands.Len(),
		Capacity: s.commands.Capacity(),
	}, http.StatusOK)
}

func (s *Server) handleClearCommands(w http.ResponseWriter, r *http.Request) {
	if s.commands != nil {
		s.commands.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}

// notOpen reports a path that has no session.
func notOpen(path string) error {
	return errors.New(errors.NotFound, "repository is not open: "+path, nil, nil)
}
