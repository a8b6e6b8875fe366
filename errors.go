/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
)

// Domain outcomes surfaced by the game store. Handlers translate these into
// HTTP statuses; socket handlers treat them as silent no-ops.
var (
	errGameNotFound   = errors.New("game not found")
	errGameStarted    = errors.New("game has already started")
	errNotOwner       = errors.New("only the game owner can do that")
	errNoPlayers      = errors.New("cannot start a game with no players")
	errPlayerNotFound = errors.New("player not found")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps domain errors onto the error taxonomy: unknown codes
// and tokens are 404s, rule violations are 400s, anything else is a 500.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errGameNotFound), errors.Is(err, errPlayerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errGameStarted), errors.Is(err, errNotOwner), errors.Is(err, errNoPlayers):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
