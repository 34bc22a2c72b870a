package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/analytics"
	"github.com/couchcryptid/groundwater-dss-service/internal/dashboard"
	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/couchcryptid/groundwater-dss-service/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie carries the visitor's session id in browsers.
	SessionCookie = "dss_session"
	// SessionHeader carries the session id for API clients.
	SessionHeader = "X-Session-ID"
)

// Dashboard is the set of operations the HTTP API exposes.
type Dashboard interface {
	FetchWell(ctx context.Context, sessionID, wellID string) (*session.Session, error)
	Session(ctx context.Context, sessionID string) (*session.Session, error)
	EndSession(ctx context.Context, sessionID string) error
	Analytics(ctx context.Context, sessionID string) (*session.Session, analytics.Report, error)
	Forecast(ctx context.Context, sessionID string, horizonDays int) (*dashboard.ForecastView, error)
	ForecastOptions() dashboard.ForecastOptions
	DefaultHorizon() int
	ExportCSV(ctx context.Context, sessionID string, w io.Writer) (string, error)
	CheckReadiness(ctx context.Context) error
}

type handlers struct {
	svc    Dashboard
	logger *slog.Logger
}

type fetchRequest struct {
	WellID string `json:"well_id"`
}

type forecastRequest struct {
	HorizonDays *int `json:"horizon_days"`
}

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	WellID    string    `json:"well_id"`
	Points    int       `json:"points"`
	FirstDate string    `json:"first_date,omitempty"`
	LastDate  string    `json:"last_date,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type observationResponse struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type forecastResponse struct {
	RunID       string                `json:"run_id"`
	WellID      string                `json:"well_id"`
	Model       string                `json:"model"`
	HorizonDays int                   `json:"horizon_days"`
	GeneratedAt time.Time             `json:"generated_at"`
	History     []observationResponse `json:"history"`
	Forecast    []observationResponse `json:"forecast"`
}

type analyticsResponse struct {
	WellID string           `json:"well_id"`
	Report analytics.Report `json:"report"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (h *handlers) fetchWell(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	sess, err := h.svc.FetchWell(c.Request.Context(), sessionID(c), req.WellID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	setSessionCookie(c, sess)
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (h *handlers) getSession(c *gin.Context) {
	sess, err := h.svc.Session(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (h *handlers) endSession(c *gin.Context) {
	if err := h.svc.EndSession(c.Request.Context(), sessionID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (h *handlers) exportCSV(c *gin.Context) {
	var buf bytes.Buffer
	wellID, err := h.svc.ExportCSV(c.Request.Context(), sessionID(c), &buf)
	if err != nil {
		h.writeError(c, err)
		return
	}
	name := unsafeFilename.ReplaceAllString(wellID, "_") + "_training_data.csv"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *handlers) analytics(c *gin.Context) {
	sess, report, err := h.svc.Analytics(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analyticsResponse{WellID: sess.WellID, Report: report})
}

func (h *handlers) forecast(c *gin.Context) {
	var req forecastRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, err)
		return
	}
	horizon := h.svc.DefaultHorizon()
	if req.HorizonDays != nil {
		horizon = *req.HorizonDays
	}

	view, err := h.svc.Forecast(c.Request.Context(), sessionID(c), horizon)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := forecastResponse{
		RunID:       view.Run.ID,
		WellID:      view.Run.WellID,
		Model:       view.Run.Model,
		HorizonDays: view.Run.HorizonDays,
		GeneratedAt: view.Run.GeneratedAt,
		History:     make([]observationResponse, len(view.History)),
		Forecast:    make([]observationResponse, len(view.Run.Points)),
	}
	for i, o := range view.History {
		resp.History[i] = observationResponse{Date: o.Date.Format(time.DateOnly), Value: o.Value}
	}
	for i, p := range view.Run.Points {
		resp.Forecast[i] = observationResponse{Date: p.Date.Format(time.DateOnly), Value: p.Value}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) forecastOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ForecastOptions())
}

// sessionID prefers the explicit header over the cookie.
func sessionID(c *gin.Context) string {
	if id := c.GetHeader(SessionHeader); id != "" {
		return id
	}
	id, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return id
}

func setSessionCookie(c *gin.Context, sess *session.Session) {
	maxAge := int(sess.ExpiresAt.Sub(sess.FetchedAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sess.ID, maxAge, "/", "", false, true)
	c.Header(SessionHeader, sess.ID)
}

func toSessionResponse(sess *session.Session) sessionResponse {
	resp := sessionResponse{
		SessionID: sess.ID,
		WellID:    sess.WellID,
		Points:    sess.Series.Len(),
		FetchedAt: sess.FetchedAt,
		ExpiresAt: sess.ExpiresAt,
	}
	if sess.Series.Len() > 0 {
		resp.FirstDate = sess.Series.First().Date.Format(time.DateOnly)
		resp.LastDate = sess.Series.Last().Date.Format(time.DateOnly)
	}
	return resp
}

func (h *handlers) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{
		Error: "invalid request body: " + err.Error(),
		Kind:  "invalid_request",
	})
}

func (h *handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, errorResponse{Error: err.Error(), Kind: domain.ErrorKind(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidHorizon), errors.Is(err, domain.ErrInvalidWellID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoSessionData):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSourceUnavailable), errors.Is(err, domain.ErrMalformedData):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
