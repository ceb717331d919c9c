package game

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Otar989/bugman-bot/internal/initdata"
	"github.com/Otar989/bugman-bot/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Handler holds the game HTTP handlers.
type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func badRequest(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "bad_request", Reason: reason})
}

func isAuthError(err error) bool {
	return errors.Is(err, initdata.ErrMalformedCredential) ||
		errors.Is(err, initdata.ErrNoSignature) ||
		errors.Is(err, initdata.ErrSignatureMismatch) ||
		errors.Is(err, initdata.ErrMissingIdentity) ||
		errors.Is(err, initdata.ErrInvalidIdentityPayload)
}

// SubmitScore handles POST /score.
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	var req models.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.audit(r, http.StatusBadRequest, "-", "invalid_json")
		badRequest(w, "invalid_json")
		return
	}
	if req.InitData == "" {
		h.audit(r, http.StatusBadRequest, "-", "missing_init_data")
		badRequest(w, "missing_init_data")
		return
	}
	if req.Score == nil {
		h.audit(r, http.StatusBadRequest, "-", "missing_score")
		badRequest(w, "missing_score")
		return
	}
	if *req.Score < 0 {
		h.audit(r, http.StatusBadRequest, "-", "negative_score")
		badRequest(w, "negative_score")
		return
	}

	result, err := h.svc.Submit(r.Context(), req.InitData, *req.Score)
	if err != nil {
		if isAuthError(err) {
			// Logs keep the exact failure; the caller only sees the
			// coarse code.
			h.log.Info("initdata rejected", "ip", r.RemoteAddr, "error", err)
			h.audit(r, http.StatusUnauthorized, "-", "invalid_init_data")
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{
				Error:  "invalid_init_data",
				Reason: "verification_failed",
			})
			return
		}
		h.log.Error("score submission failed", "ip", r.RemoteAddr, "error", err)
		h.audit(r, http.StatusInternalServerError, "-", "storage_error")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "server_error"})
		return
	}

	h.audit(r, http.StatusOK, result.Player.ID, result.Status.String())
	writeJSON(w, http.StatusOK, models.ScoreResponse{
		OK:          true,
		Me:          result.Player,
		RateLimited: result.Status == StatusRateLimited,
	})
}

// Leaderboard handles GET /leaderboard.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	players, err := h.svc.Leaderboard(r.Context(), limit, offset)
	if err != nil {
		h.log.Error("leaderboard read failed", "ip", r.RemoteAddr, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "server_error"})
		return
	}

	items := make([]models.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		items = append(items, models.LeaderboardEntry{
			DisplayName: p.DisplayName,
			Username:    p.Username,
			BestScore:   p.BestScore,
		})
	}
	writeJSON(w, http.StatusOK, models.LeaderboardResponse{Items: items})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": "bugman-leaderboard"})
}

// DebugVerify handles POST /debug/verify. Only routed when debug mode is
// explicitly enabled; it exposes the canonical string and every candidate
// signature for diagnosing mismatches against real client blobs.
func (h *Handler) DebugVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitData string `json:"initData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InitData == "" {
		badRequest(w, "missing_init_data")
		return
	}

	ins, err := h.svc.verifier.Inspect(req.InitData)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

// audit emits the per-request outcome line used for abuse review,
// independent of the response body.
func (h *Handler) audit(r *http.Request, status int, playerID, reason string) {
	h.log.Info("score request",
		"ip", r.RemoteAddr,
		"status", status,
		"player_id", playerID,
		"reason", reason,
	)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
