package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/auth"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/config"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/game"
)

type contextKey string

const identityContextKey contextKey = "identity"

type Server struct {
	cfg      config.APIConfig
	log      *slog.Logger
	auth     *auth.GatewayClient
	game     *game.Service
	mux      *chi.Mux
	limiters *accountLimiters
}

func New(cfg config.APIConfig, logger *slog.Logger, gateway *auth.GatewayClient, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		auth:     gateway,
		game:     gameSvc,
		mux:      chi.NewRouter(),
		limiters: newAccountLimiters(rate.Limit(cfg.MissionsPerMinute/60), cfg.MissionBurst),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.sessionMiddleware)
		r.Get("/account", s.handleAccount)
		r.Get("/missions", s.handleMissionList)
		r.Get("/missions/{id}", s.handleMissionDetail)
		r.With(s.missionRateLimit).Post("/missions", s.handleMissionResolve)
	})
}

// sessionMiddleware resolves the bearer token through the external session
// gateway. A token the gateway rejects never reaches the sim core.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		id, err := s.auth.VerifySession(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		ctx := context.WithValue(r.Context(), identityContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) (auth.Identity, error) {
	id, ok := ctx.Value(identityContextKey).(auth.Identity)
	if !ok || id.AccountID <= 0 {
		return auth.Identity{}, errors.New("missing session context")
	}
	return id, nil
}

// limiterIdleTTL is how long an account's token bucket may sit unused before
// the next sweep drops it.
const limiterIdleTTL = 15 * time.Minute

type accountLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// accountLimiters is an edge throttle in front of the DB-backed anti-abuse
// rules, one token bucket per account. Idle buckets are evicted so the map
// stays bounded on long-lived deployments.
type accountLimiters struct {
	mu        sync.Mutex
	m         map[int64]*accountLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func newAccountLimiters(limit rate.Limit, burst int) *accountLimiters {
	if burst < 1 {
		burst = 1
	}
	return &accountLimiters{
		m:         make(map[int64]*accountLimiter),
		limit:     limit,
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (l *accountLimiters) allow(accountID int64) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		l.evictIdleLocked(now)
	}
	e, ok := l.m[accountID]
	if !ok {
		e = &accountLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		l.m[accountID] = e
	}
	e.lastSeen = now
	return e.lim.Allow()
}

// evictIdleLocked drops buckets idle past the TTL. Caller holds l.mu.
func (l *accountLimiters) evictIdleLocked(now time.Time) {
	for id, e := range l.m {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.m, id)
		}
	}
	l.lastSweep = now
}

func (s *Server) missionRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := identityFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !s.limiters.allow(id.AccountID) {
			writeError(w, http.StatusTooManyRequests, "mission rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	id, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	overview, err := s.game.Overview(r.Context(), id.AccountID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleMissionResolve(w http.ResponseWriter, r *http.Request) {
	id, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		DefenderID      int64  `json:"defender_id"`
		MissionType     string `json:"mission_type"`
		Turns           int    `json:"turns"`
		TargetUnit      string `json:"target_unit,omitempty"`
		Mode            string `json:"mode,omitempty"`
		TargetStructure string `json:"target_structure,omitempty"`
		TargetCategory  string `json:"target_category,omitempty"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := game.MissionRequest{
		AttackerID:      id.AccountID,
		DefenderID:      in.DefenderID,
		Type:            game.MissionType(in.MissionType),
		Turns:           in.Turns,
		TargetUnit:      game.UnitType(in.TargetUnit),
		Mode:            game.SabotageMode(in.Mode),
		TargetStructure: game.StructureKey(in.TargetStructure),
		TargetCategory:  game.LoadoutCategory(in.TargetCategory),
	}
	result, err := s.game.ResolveMission(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMissionList(w http.ResponseWriter, r *http.Request) {
	id, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := s.game.RecentMissions(r.Context(), id.AccountID, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"missions": logs})
}

func (s *Server) handleMissionDetail(w http.ResponseWriter, r *http.Request) {
	id, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	entry, err := s.game.MissionByID(r.Context(), id.AccountID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// writeDomainError maps sentinel families onto HTTP statuses. Anything
// unmapped is a persistence fault: full detail goes to the log, the player
// gets a generic failure.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidMission),
		errors.Is(err, game.ErrInsufficientTurns),
		errors.Is(err, game.ErrNoSpies),
		errors.Is(err, game.ErrInsufficientCredits):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrLevelBracket),
		errors.Is(err, game.ErrSabotageCooldown),
		errors.Is(err, game.ErrSabotageShielded),
		errors.Is(err, game.ErrMissionLogRestricted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrAccountNotFound),
		errors.Is(err, game.ErrMissionLogNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
