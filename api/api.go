// Package api registers the HTTP command surface over the reflow engine
// on a PocketBase app, in the same style as the teacher's sync package:
// one handler per endpoint, wrapped in requireAuth, registered against
// e.Router during OnServe. Every handler reads/writes through a
// store.Adapter and returns errs.Error as a structured JSON body instead
// of panicking.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/ratelimit"
	"github.com/motioneffector/reflow/store"
)

// Server holds the dependencies every handler needs.
type Server struct {
	Adapter     *store.Adapter
	ReflowLimit *ratelimit.RateLimiter
}

// New builds a Server backed by adapter, with the manual reflow-trigger
// endpoint throttled to one call per reflowMinInterval.
func New(adapter *store.Adapter, reflowMinInterval time.Duration) *Server {
	cfg := ratelimit.DefaultConfig()
	cfg.MinInterval = reflowMinInterval
	return &Server{
		Adapter:     adapter,
		ReflowLimit: ratelimit.NewRateLimiter(cfg),
	}
}

// requireAuth mirrors the teacher's own auth gate: every mutating or
// data-bearing endpoint requires an authenticated PocketBase identity.
func requireAuth(handler func(*core.RequestEvent) error) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if e.Auth == nil {
			return apis.NewUnauthorizedError("authentication required", nil)
		}
		return handler(e)
	}
}

// Register wires every command-surface endpoint onto e.Router, called
// from the app's OnServe hook the way the teacher's InitializeSyncService
// is invoked from main.go.
func (s *Server) Register(app *pocketbase.PocketBase, e *core.ServeEvent) error {
	e.Router.POST("/api/custom/reflow/series", requireAuth(s.handleCreateSeries))
	e.Router.GET("/api/custom/reflow/series/{id}", requireAuth(s.handleGetSeries))
	e.Router.PATCH("/api/custom/reflow/series/{id}", requireAuth(s.handleUpdateSeries))
	e.Router.DELETE("/api/custom/reflow/series/{id}", requireAuth(s.handleDeleteSeries))
	e.Router.POST("/api/custom/reflow/series/{id}/lock", requireAuth(s.handleLockSeries))
	e.Router.POST("/api/custom/reflow/series/{id}/unlock", requireAuth(s.handleUnlockSeries))
	e.Router.POST("/api/custom/reflow/series/{id}/cycling/advance", requireAuth(s.handleAdvanceCycling))
	e.Router.POST("/api/custom/reflow/series/{id}/cycling/reset", requireAuth(s.handleResetCycling))

	e.Router.POST("/api/custom/reflow/completions", requireAuth(s.handleLogCompletion))
	e.Router.DELETE("/api/custom/reflow/completions/{id}", requireAuth(s.handleDeleteCompletion))

	e.Router.POST("/api/custom/reflow/instances/cancel", requireAuth(s.handleCancelInstance))
	e.Router.POST("/api/custom/reflow/instances/restore", requireAuth(s.handleRestoreInstance))
	e.Router.POST("/api/custom/reflow/instances/reschedule", requireAuth(s.handleRescheduleInstance))

	e.Router.POST("/api/custom/reflow/links", requireAuth(s.handleLinkSeries))
	e.Router.DELETE("/api/custom/reflow/links/{id}", requireAuth(s.handleUnlinkSeries))
	e.Router.PATCH("/api/custom/reflow/links/{id}", requireAuth(s.handleUpdateLink))

	e.Router.POST("/api/custom/reflow/constraints", requireAuth(s.handleCreateConstraint))
	e.Router.DELETE("/api/custom/reflow/constraints/{id}", requireAuth(s.handleDeleteConstraint))

	e.Router.POST("/api/custom/reflow/run", requireAuth(s.handleRunReflow))
	return nil
}

func decodeJSON(e *core.RequestEvent, dst any) error {
	defer e.Request.Body.Close()
	return json.NewDecoder(e.Request.Body).Decode(dst)
}

func jsonError(e *core.RequestEvent, status int, err error) error {
	return e.JSON(status, map[string]any{"error": err.Error()})
}

// rateLimitWait blocks the calling goroutine for the reflow endpoint's
// throttle window; the reflow trigger is the one endpoint expensive
// enough (full backtracking search) to warrant it, per the ambient
// stack's reuse of the teacher's rate limiter.
func (s *Server) rateLimitWait(e *core.RequestEvent) error {
	if err := s.ReflowLimit.Wait(e.Request.Context()); err != nil {
		return jsonError(e, http.StatusTooManyRequests, err)
	}
	return nil
}
