package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"campusbus/internal/auth"
	"campusbus/internal/checkpoint"
	"campusbus/internal/entitlement"
	"campusbus/internal/fleet"
	"campusbus/internal/ledger"
	"campusbus/internal/metrics"
	"campusbus/internal/scan"
	"campusbus/internal/summary"
)

// Handler owns the HTTP surface of the trip core.
type Handler struct {
	checkpoints *checkpoint.Service
	scans       *scan.Coordinator
	projector   *summary.Projector
	cache       *summary.Cache
	fleet       *fleet.Repository
	log         *logrus.Logger

	jwtIssuer  string
	jwtKey     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	loc        *time.Location
}

// New wires the handler.
func New(checkpoints *checkpoint.Service, scans *scan.Coordinator, projector *summary.Projector,
	cache *summary.Cache, fleetRepo *fleet.Repository, log *logrus.Logger,
	jwtIssuer, jwtKey string, accessTTL, refreshTTL time.Duration, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		checkpoints: checkpoints,
		scans:       scans,
		projector:   projector,
		cache:       cache,
		fleet:       fleetRepo,
		log:         log,
		jwtIssuer:   jwtIssuer,
		jwtKey:      jwtKey,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		loc:         loc,
	}
}

// Register mounts the versioned routes. public carries the session endpoint;
// authed everything gated by a bearer token.
func (h *Handler) Register(public, authed *gin.RouterGroup) {
	public.POST("/sessions", h.CreateSession)
	public.DELETE("/sessions", h.DestroySession)

	authed.POST("/checkpoints/:transition", h.SubmitTransition)
	authed.GET("/checkpoints/status", h.CheckpointStatus)
	authed.POST("/scans", h.RecordScan)
	authed.GET("/summary", h.Summary)
	authed.PUT("/buses/:id", h.RegisterBus)
}

func (h *Handler) today() string {
	return time.Now().In(h.loc).Format(entitlement.DateLayout)
}

// ---------- Sessions ----------

type sessionRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
	BusID    string `json:"bus_id" binding:"required"`
}

// CreateSession opens a driver session scoped to a bus and issues tokens.
func (h *Handler) CreateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bus, err := h.fleet.GetBus(c.Request.Context(), req.BusID)
	if err != nil {
		h.log.WithError(err).Error("bus lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bus lookup failed"})
		return
	}
	if bus == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown bus"})
		return
	}

	tokens, err := auth.Issue(req.DriverID, auth.RoleDriver, req.BusID, h.jwtIssuer, h.jwtKey, h.accessTTL, h.refreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := h.fleet.SaveRefreshToken(c.Request.Context(), req.DriverID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		// The session still opens; the unsaved refresh token just cannot be
		// rotated or revoked later.
		h.log.WithError(err).WithField("driver", req.DriverID).Warn("refresh token persist failed")
	}

	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

type revokeRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// DestroySession revokes a refresh token, ending the driver session once the
// access token expires. Public on purpose: an expired access token must not
// block a logout.
func (h *Handler) DestroySession(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := auth.Parse(req.RefreshToken, h.jwtKey, h.jwtIssuer); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	if err := h.fleet.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
		h.log.WithError(err).Error("refresh token revoke failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- Checkpoints ----------

type transitionRequest struct {
	BusID    string `json:"bus_id" binding:"required"`
	Date     string `json:"date"`
	Odometer int64  `json:"odometer" binding:"required"`
}

// SubmitTransition advances the bus's daily trip by one named checkpoint.
func (h *Handler) SubmitTransition(c *gin.Context) {
	t, ok := checkpoint.ParseTransition(c.Param("transition"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown transition"})
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Date == "" {
		req.Date = h.today()
	}

	claims := auth.FromContext(c)
	actor := checkpoint.Actor{DriverID: claims.Subject, Admin: claims.IsAdmin()}

	cp, err := h.checkpoints.Submit(c.Request.Context(), actor, req.BusID, req.Date, t, req.Odometer)
	metrics.TransitionsTotal.WithLabelValues(string(t), resultLabel(err)).Inc()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"checkpoint": cp,
		"phase":      cp.Phase,
		"can_scan":   cp.CanScan(),
	})
}

// CheckpointStatus is the read-only phase probe for the scanner UI.
func (h *Handler) CheckpointStatus(c *gin.Context) {
	busID := c.Query("bus_id")
	if busID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bus_id required"})
		return
	}
	date := c.Query("date")
	if date == "" {
		date = h.today()
	}
	if _, err := time.Parse(entitlement.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad date"})
		return
	}
	status, err := h.checkpoints.Status(c.Request.Context(), busID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ---------- Scans ----------

type scanRequest struct {
	Code      string `json:"code" binding:"required"`
	Direction string `json:"direction" binding:"required"`
	BusID     string `json:"bus_id" binding:"required"`
}

// RecordScan commits one boarding or alighting event against the ledger.
func (h *Handler) RecordScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	direction, ok := scan.ParseDirection(req.Direction)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be CHECK_IN or CHECK_OUT"})
		return
	}

	started := time.Now()
	rec, err := h.scans.RecordScan(c.Request.Context(), req.Code, direction, req.BusID)
	metrics.ScanDuration.Observe(time.Since(started).Seconds())
	metrics.ScansTotal.WithLabelValues(string(direction), resultLabel(err)).Inc()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"record":         rec,
		"journey_status": ledger.DeriveStatus(rec),
	})
}

// ---------- Summary ----------

// Summary returns the per-route/shift attendance table for a date.
func (h *Handler) Summary(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.today()
	}
	if _, err := time.Parse(entitlement.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad date"})
		return
	}

	// The worker keeps a snapshot per date warm; a miss or a cache error
	// falls back to recomputing from the ledger.
	if h.cache != nil {
		snap, ok, err := h.cache.Get(c.Request.Context(), date)
		if err != nil {
			h.log.WithError(err).Warn("summary cache read failed")
		} else if ok {
			c.JSON(http.StatusOK, gin.H{"date": snap.Date, "rows": snap.Rows})
			return
		}
	}

	rows, err := h.projector.Summarize(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "rows": rows})
}

// ---------- Fleet ----------

type busRequest struct {
	RouteID string `json:"route_id" binding:"required"`
	Shift   string `json:"shift" binding:"required,oneof=morning afternoon"`
}

// RegisterBus seeds or reassigns a bus. Admin only.
func (h *Handler) RegisterBus(c *gin.Context) {
	if !auth.FromContext(c).IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin required"})
		return
	}
	var req busRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.fleet.UpsertBus(c.Request.Context(), c.Param("id"), req.RouteID, entitlement.Shift(req.Shift)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
