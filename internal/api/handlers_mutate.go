package api

import (
	"context"
	"net/http"

	"gitnet/internal/errors"
)

// MutationRequest is the body of every write endpoint. Each endpoint reads
// only the fields it needs.
type MutationRequest struct {
	Path        string   `json:"path"`
	Files       []string `json:"files,omitempty"`
	Message     string   `json:"message,omitempty"`
	Amend       bool     `json:"amend,omitempty"`
	Remote      string   `json:"remote,omitempty"`
	Branch      string   `json:"branch,omitempty"`
	SetUpstream bool     `json:"setUpstream,omitempty"`
	Ref         string   `json:"ref,omitempty"`
	Index       int      `json:"index,omitempty"`
}

// MutationResponse acknowledges a write.
type MutationResponse struct {
	OK bool `json:"ok"`
}

type mutationFunc func(ctx context.Context, root string, req *MutationRequest) error

// mutation decodes the request, runs fn against the open repository and
// refreshes the session so subscribers see the result without waiting for
// the watcher.
func (s *Server) mutation(name string, fn mutationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MutationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		root, ok := s.resolveRepo(w, req.Path)
		if !ok {
			return
		}

		if err := fn(r.Context(), root, &req); err != nil {
			s.logger.Warn("Mutation failed",
				"op", name,
				"repoPath", root,
				"error", err.Error(),
				"requestID", GetRequestID(r.Context()),
			)
			WriteGitNetError(w, err)
			return
		}

		if err := s.sessions.Refresh(r.Context(), root); err != nil {
			s.logger.Warn("Refresh after mutation failed",
				"op", name,
				"repoPath", root,
				"error", err.Error(),
			)
		}
		WriteJSON(w, MutationResponse{OK: true}, http.StatusOK)
	}
}

// withFiles validates req.Files before calling fn.
func withFiles(fn func(ctx context.Context, root string, files ...string) error) mutationFunc {
	return func(ctx context.Context, root string, req *MutationRequest) error {
		files, err := repoFiles(root, req.Files)
		if err != nil {
			return err
		}
		return fn(ctx, root, files...)
	}
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	s.mutation("stage", withFiles(s.svc.Stage))(w, r)
}

func (s *Server) handleUnstage(w http.ResponseWriter, r *http.Request) {
	s.mutation("unstage", withFiles(s.svc.Unstage))(w, r)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	s.mutation("discard", withFiles(s.svc.Discard))(w, r)
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	s.mutation("clean", withFiles(s.svc.Clean))(w, r)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	s.mutation("commit", func(ctx context.Context, root string, req *MutationRequest) error {
		return s.svc.Commit(ctx, root, req.Message, req.Amend)
	})(w, r)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	s.mutation("push", func(ctx context.Context, root string, req *MutationRequest) error {
		return s.svc.Push(ctx, root, req.Remote, req.Branch, req.SetUpstream)
	})(w, r)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	s.mutation("checkout", func(ctx context.Context, root string, req *MutationRequest) error {
		return s.svc.Checkout(ctx, root, req.Ref)
	})(w, r)
}

func (s *Server) handleStashApply(w http.ResponseWriter, r *http.Request) {
	s.mutation("stash-apply", func(ctx context.Context, root string, req *MutationRequest) error {
		return s.svc.StashApply(ctx, root, req.Index)
	})(w, r)
}

func (s *Server) handleStashDrop(w http.ResponseWriter, r *http.Request) {
	s.mutation("stash-drop", func(ctx context.Context, root string, req *MutationRequest) error {
		return s.svc.StashDrop(ctx, root, req.Index)
	})(w, r)
}

// CloneRequest is the body of the clone endpoint.
type CloneRequest struct {
	URL  string `json:"url"`
	Dest string `json:"dest"`
}

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	var req CloneRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Dest == "" {
		WriteGitNetError(w, errors.New(errors.ValidationFailed, "dest is required", nil, nil))
		return
	}
	if err := s.svc.Clone(r.Context(), req.URL, req.Dest); err != nil {
		WriteGitNetError(w, err)
		return
	}
	WriteJSON(w, MutationResponse{OK: true}, http.StatusOK)
}
