package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routes builds the router. Middleware runs outermost first.
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		CORSMiddleware(),
		RequestIDMiddleware(),
		LoggingMiddleware(s.logger),
		RecoveryMiddleware(s.logger),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, ErrorResponse{Error: "method not allowed", Code: "METHOD_NOT_ALLOWED"}, http.StatusMethodNotAllowed)
	})

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.Server.TokenHash, s.logger))

		// Sessions
		r.Post("/repos/open", s.handleOpenRepo)
		r.Post("/repos/close", s.handleCloseRepo)
		r.Get("/repos/info", s.handleRepoInfo)
		r.Get("/repos", s.handleListRepos)

		// Reads
		r.Get("/commits", s.handleCommits)
		r.Get("/commits/{hash}", s.handleCommitDetail)
		r.Get("/diff", s.handleDiff)
		r.Get("/status", s.handleStatus)
		r.Get("/branches", s.handleBranches)
		r.Get("/tags", s.handleTags)
		r.Get("/stashes", s.handleStashes)
		r.Get("/hotfiles", s.handleHotFiles)
		r.Get("/contributors", s.handleContributors)

		// Layout
		r.Get("/graph", s.handleGraph)
		r.Get("/graph/lineage", s.handleLineage)

		// Command log
		r.Get("/commands", s.handleCommands)
		r.Delete("/commands", s.handleClearCommands)

		// Mutations
		r.Post("/stage", s.handleStage)
		r.Post("/unstage", s.handleUnstage)
		r.Post("/discard", s.handleDiscard)
		r.Post("/clean", s.handleClean)
		r.Post("/commit", s.handleCommit)
		r.Post("/push", s.handlePush)
		r.Post("/checkout", s.handleCheckout)
		r.Post("/stash/apply", s.handleStashApply)
		r.Post("/stash/drop", s.handleStashDrop)
		r.Post("/clone", s.handleClone)

		// Live updates
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}
