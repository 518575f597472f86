// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/lifecatcher9182/vote-system-sub000/ballot"
	"github.com/lifecatcher9182/vote-system-sub000/cliparse"
	"github.com/lifecatcher9182/vote-system-sub000/events"
	"github.com/lifecatcher9182/vote-system-sub000/handlers"
	"github.com/lifecatcher9182/vote-system-sub000/middleware"
	"github.com/lifecatcher9182/vote-system-sub000/results"
	"github.com/lifecatcher9182/vote-system-sub000/store"
)

// NewRouter wires every route. rdb and publisher may be nil; the server
// then runs without a results cache or domain events.
func NewRouter(db *sql.DB, cfg cliparse.Config, rdb *redis.Client, publisher events.Publisher) *http.ServeMux {
	mux := http.NewServeMux()

	if publisher == nil {
		publisher = events.Nop{}
	}

	st := store.New(db)
	monitor := results.NewMonitor(st, results.NewCache(rdb, cfg.ResultsCacheTTL), cfg.MonitorRefresh)
	ctrl := ballot.NewController(st, publisher, monitor)

	// Initialize handlers
	votingHandler := handlers.NewVotingHandler(ctrl, cfg)
	electionHandler := handlers.NewElectionHandler(st, monitor, publisher)
	codeHandler := handlers.NewCodeHandler(st, monitor)
	resultsHandler := handlers.NewResultsHandler(st, monitor)

	admin := middleware.RequireAdmin(cfg.AdminKey)
	voter := middleware.RequireSession(cfg.SessionSecret)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Voter sessions
	mux.HandleFunc("POST /sessions", middleware.WithLogging(votingHandler.Redeem))
	mux.HandleFunc("GET /session", middleware.WithLogging(voter(votingHandler.GetSession)))
	mux.HandleFunc("GET /session/elections/{id}", middleware.WithLogging(voter(votingHandler.GetBallotForm)))
	mux.HandleFunc("POST /session/elections/{id}/ballot", middleware.WithLogging(voter(votingHandler.SubmitBallot)))

	// Election administration
	mux.HandleFunc("POST /admin/elections", middleware.WithLogging(admin(electionHandler.CreateElection)))
	mux.HandleFunc("POST /admin/elections/{id}/candidates", middleware.WithLogging(admin(electionHandler.AddCandidate)))
	mux.HandleFunc("POST /admin/elections/{id}/status", middleware.WithLogging(admin(electionHandler.SetStatus)))
	mux.HandleFunc("POST /admin/elections/{id}/close", middleware.WithLogging(admin(electionHandler.CloseElection)))
	mux.HandleFunc("POST /admin/elections/{id}/runoff", middleware.WithLogging(admin(electionHandler.CreateRunoff)))
	mux.HandleFunc("GET /admin/elections/{id}/results", middleware.WithLogging(admin(resultsHandler.GetLiveResults)))

	// Voter codes and groups
	mux.HandleFunc("POST /admin/codes", middleware.WithLogging(admin(codeHandler.GenerateCodes)))
	mux.HandleFunc("DELETE /admin/codes/{code}", middleware.WithLogging(admin(codeHandler.DeleteCode)))
	mux.HandleFunc("POST /admin/groups/{group}/elections", middleware.WithLogging(admin(codeHandler.AddElectionToGroup)))

	// Final results (public once closed)
	mux.HandleFunc("GET /elections/{id}/results", middleware.WithLogging(resultsHandler.GetResults))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("vote-system API v1"))
	})

	return mux
}
