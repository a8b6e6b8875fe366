package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type createGameRequest struct {
	Timer *int `json:"timer"`
}

type createGameResponse struct {
	JoinCode       string `json:"joinCode"`
	OwnerAuthToken string `json:"ownerAuthToken"`
}

type addPlayerRequest struct {
	JoinCode       string `json:"joinCode"`
	Nickname       string `json:"nickname"`
	ProfilePicture *int   `json:"profilePicture"`
	OwnerAuthToken string `json:"ownerAuthToken"`
}

type addPlayerResponse struct {
	JoinCode  string `json:"joinCode"`
	AuthToken string `json:"authToken"`
	IsOwner   bool   `json:"isOwner"`
}

type gameRequest struct {
	JoinCode  string `json:"joinCode"`
	AuthToken string `json:"authToken"`
}

type checkGameResponse struct {
	GameFound bool `json:"gameFound"`
}

type sessionResponse struct {
	Active   bool   `json:"active"`
	JoinCode string `json:"joinCode,omitempty"`
	Status   string `json:"status,omitempty"`
}

type playerListResponse struct {
	Players        []Player `json:"players"`
	OwnerAuthToken string   `json:"ownerAuthToken"`
	Status         string   `json:"status"`
	EndTime        int64    `json:"endTime"`
	ServerTime     int64    `json:"serverTime"`
}

type firstInfected struct {
	Name      string `json:"name"`
	AuthToken string `json:"authToken"`
}

type startGameResponse struct {
	Success       bool          `json:"success"`
	FirstInfected firstInfected `json:"firstInfected"`
	EndTime       int64         `json:"endTime"`
}

type subscribeRequest struct {
	JoinCode     string            `json:"joinCode"`
	AuthToken    string            `json:"authToken"`
	Subscription *PushSubscription `json:"subscription"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func serveCreateGame(cfg *Config, store GameStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req createGameRequest
		if err := decodeBody(r, &req); err != nil || req.Timer == nil || !isValidTimer(*req.Timer) {
			writeError(w, http.StatusBadRequest, "Timer must be 0 (no timer) or between 5 and 90 minutes")
			return
		}

		game, err := store.CreateGame(r.Context(), *req.Timer)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		logf(cfg, "GAMES: Created game %s (timer %dm)", game.JoinCode, game.Timer)

		writeJSON(w, http.StatusOK, createGameResponse{
			JoinCode:       game.JoinCode,
			OwnerAuthToken: game.OwnerAuthToken,
		})
	}
}

func serveAddPlayer(cfg *Config, store GameStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req addPlayerRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !isValidJoinCode(req.JoinCode) {
			writeError(w, http.StatusBadRequest, "Join code must be exactly 6 alphanumeric characters")
			return
		}
		if !isValidNickname(req.Nickname) {
			writeError(w, http.StatusBadRequest, "Nickname must be 1-20 characters")
			return
		}
		if req.ProfilePicture == nil || !isValidProfilePicture(*req.ProfilePicture) {
			writeError(w, http.StatusBadRequest, "Profile picture must be 1, 2, or 3")
			return
		}

		player, isOwner, err := store.AddPlayer(r.Context(), req.JoinCode, trimmedNickname(req.Nickname), *req.ProfilePicture, req.OwnerAuthToken)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		logf(cfg, "GAMES: Player %q joined game %s", player.Name, normalizeJoinCode(req.JoinCode))

		writeJSON(w, http.StatusOK, addPlayerResponse{
			JoinCode:  normalizeJoinCode(req.JoinCode),
			AuthToken: player.AuthToken,
			IsOwner:   isOwner,
		})
	}
}

func serveCheckGame(cfg *Config, store GameStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req gameRequest
		if err := decodeBody(r, &req); err != nil || !isValidJoinCode(req.JoinCode) {
			writeError(w, http.StatusBadRequest, "Join code must be exactly 6 alphanumeric characters")
			return
		}

		_, err := store.FindGame(r.Context(), req.JoinCode)
		writeJSON(w, http.StatusOK, checkGameResponse{GameFound: err == nil})
	}
}

// servePlayerSession lets a client resume after restoring its auth token from
// local storage: given only the token, report which game it belongs to.
func servePlayerSession(cfg *Config, store GameStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req gameRequest
		if err := decodeBody(r, &req); err != nil || req.AuthToken == "" {
			writeJSON(w, http.StatusBadRequest, sessionResponse{Active: false})
			return
		}

		game, err := store.FindGameByPlayerAuth(r.Context(), req.AuthToken)
		if err != nil {
			writeJSON(w, http.StatusOK, sessionResponse{Active: false})
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			Active:   true,
			JoinCode: game.JoinCode,
			Status:   game.Status,
		})
	}
}

func serveGetPlayers(cfg *Config, store GameStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req gameRequest
		if err := decodeBody(r, &req); err != nil || !isValidJoinCode(req.JoinCode) {
			writeError(w, http.StatusBadRequest, "Join code must be exactly 6 alphanumeric characters")
			return
		}

		game, err := store.FindGame(r.Context(), req.JoinCode)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, playerListResponse{
			Players:        game.Players,
			OwnerAuthToken: game.OwnerAuthToken,
			Status:         game.Status,
			EndTime:        game.EndTime,
			ServerTime:     time.Now().UnixMilli(),
		})
	}
}

func serveStartGame(cfg *Config, store GameStore, rooms *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req gameRequest
		if err := decodeBody(r, &req); err != nil || !isValidJoinCode(req.JoinCode) {
			writeError(w, http.StatusBadRequest, "Join code must be exactly 6 alphanumeric characters")
			return
		}
		if !isValidAuthToken(req.AuthToken) {
			writeError(w, http.StatusBadRequest, "Invalid auth token")
			return
		}

		result, err := store.StartGame(r.Context(), req.JoinCode, req.AuthToken)
		if err != nil {
			// Any lifecycle failure on start is the client's fault.
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		room := normalizeJoinCode(req.JoinCode)
		logf(cfg, "GAMES: Game %s started, %q is first infected", room, result.FirstInfected.Name)
		rooms.broadcast(room, GameStartedMessage{
			Type:                   eventGameStarted,
			FirstInfectedAuthToken: result.FirstInfected.AuthToken,
			FirstInfectedName:      result.FirstInfected.Name,
			EndTime:                result.EndTime,
			ServerTime:             time.Now().UnixMilli(),
		}, nil)

		writeJSON(w, http.StatusOK, startGameResponse{
			Success: true,
			FirstInfected: firstInfected{
				Name:      result.FirstInfected.Name,
				AuthToken: result.FirstInfected.AuthToken,
			},
			EndTime: result.EndTime,
		})
	}
}

func serveVapidPublicKey(cfg *Config) httprouter.Handle {
	type vapidResponse struct {
		PublicKey *string `json:"publicKey"`
	}

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var key *string
		if cfg.vapidPublicKey != "" {
			key = &cfg.vapidPublicKey
		}
		writeJSON(w, http.StatusOK, vapidResponse{PublicKey: key})
	}
}

func servePushSubscribe(cfg *Config, store GameStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req subscribeRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !isValidJoinCode(req.JoinCode) {
			writeError(w, http.StatusBadRequest, "Join code must be exactly 6 alphanumeric characters")
			return
		}
		if !isValidAuthToken(req.AuthToken) {
			writeError(w, http.StatusBadRequest, "Invalid auth token")
			return
		}
		if !isValidSubscription(req.Subscription) {
			writeError(w, http.StatusBadRequest, "Invalid push subscription")
			return
		}

		if err := store.SavePushSubscription(r.Context(), req.JoinCode, req.AuthToken, req.Subscription); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func servePushUnsubscribe(cfg *Config, store GameStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req gameRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !isValidJoinCode(req.JoinCode) {
			writeError(w, http.StatusBadRequest, "Join code must be exactly 6 alphanumeric characters")
			return
		}
		if !isValidAuthToken(req.AuthToken) {
			writeError(w, http.StatusBadRequest, "Invalid auth token")
			return
		}

		err := store.RemovePushSubscription(r.Context(), req.JoinCode, req.AuthToken)
		writeJSON(w, http.StatusOK, successResponse{Success: err == nil})
	}
}

func serveHealthCheck(cfg *Config) httprouter.Handle {
	type healthResponse struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		writeJSON(w, http.StatusOK, healthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func serveVersion(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte("infect v" + releaseVersion + "\n")); err != nil {
			return
		}

		logf(cfg, "SERVE: Version page to %s in %s",
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveQR renders the game's join URL as a scannable PNG, so a second phone
// can pick up the join code from the first one's screen.
func serveQR(cfg *Config, store GameStore) httprouter.Handle {
	const qrSize = 320

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		joinCode := ps.ByName("joincode")
		if !isValidJoinCode(joinCode) {
			http.Error(w, "invalid join code", http.StatusBadRequest)
			return
		}
		if _, err := store.FindGame(r.Context(), joinCode); err != nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/join/" + normalizeJoinCode(joinCode)

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}
