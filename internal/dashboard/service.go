// Package dashboard implements the user-facing operations of the decision
// support dashboard on top of per-visitor sessions: fetching a well,
// historical analytics, forecasting and CSV export.
package dashboard

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/analytics"
	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/couchcryptid/groundwater-dss-service/internal/forecast"
	"github.com/couchcryptid/groundwater-dss-service/internal/model"
	"github.com/couchcryptid/groundwater-dss-service/internal/observability"
	"github.com/couchcryptid/groundwater-dss-service/internal/session"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// maxWellIDLength bounds identifiers forwarded to the well data API.
const maxWellIDLength = 128

// Source fetches the full history of one well.
type Source interface {
	FetchSeries(ctx context.Context, wellID string) (domain.TimeSeries, error)
}

// Archive persists fetched observations and forecast runs.
type Archive interface {
	SaveSeries(ctx context.Context, wellID string, series domain.TimeSeries, fetchedAt time.Time) error
	SaveForecastRun(ctx context.Context, run domain.ForecastRun) error
}

// Publisher announces completed forecast runs.
type Publisher interface {
	PublishForecast(ctx context.Context, run domain.ForecastRun) error
}

// Options configures a Service. Archive, Publisher and Clock are optional.
type Options struct {
	DefaultHorizon int
	MinHorizon     int
	MaxHorizon     int
	FillGaps       bool
	SessionTTL     time.Duration

	Archive   Archive
	Publisher Publisher
	Clock     clockwork.Clock
}

// Service orchestrates dashboard operations. Failed operations never modify
// the visitor's session.
type Service struct {
	source    Source
	sessions  session.Store
	regressor model.Regressor
	archive   Archive
	publisher Publisher
	opts      Options
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Service. A nil regressor disables forecasting.
func New(src Source, sessions session.Store, regressor model.Regressor, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		source:    src,
		sessions:  sessions,
		regressor: regressor,
		archive:   opts.Archive,
		publisher: opts.Publisher,
		opts:      opts,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil when the session store is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if err := s.sessions.Ping(ctx); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// FetchWell loads the full history of wellID and stores it as the session's
// current data. sessionID may be empty or unknown, in which case a new
// session is issued.
func (s *Service) FetchWell(ctx context.Context, sessionID, wellID string) (*session.Session, error) {
	wellID = strings.TrimSpace(wellID)
	if wellID == "" {
		s.metrics.WellFetches.WithLabelValues(domain.ErrorKind(domain.ErrInvalidWellID)).Inc()
		return nil, fmt.Errorf("%w: well id is required", domain.ErrInvalidWellID)
	}
	if len(wellID) > maxWellIDLength {
		s.metrics.WellFetches.WithLabelValues(domain.ErrorKind(domain.ErrInvalidWellID)).Inc()
		return nil, fmt.Errorf("%w: well id longer than %d characters", domain.ErrInvalidWellID, maxWellIDLength)
	}

	series, err := s.source.FetchSeries(ctx, wellID)
	if err != nil {
		s.metrics.WellFetches.WithLabelValues(domain.ErrorKind(err)).Inc()
		s.logger.Warn("well fetch failed", "well_id", wellID, "error", err)
		return nil, err
	}

	sessionID, err = s.issuedID(ctx, sessionID)
	if err != nil {
		s.metrics.WellFetches.WithLabelValues("internal").Inc()
		return nil, err
	}
	now := s.clock.Now().UTC()
	sess := session.New(sessionID, wellID, series, now, s.opts.SessionTTL)
	if err := s.sessions.Put(ctx, sess); err != nil {
		s.metrics.WellFetches.WithLabelValues("internal").Inc()
		return nil, fmt.Errorf("store session: %w", err)
	}
	s.metrics.WellFetches.WithLabelValues("success").Inc()
	s.logger.Info("well fetched",
		"well_id", wellID,
		"session_id", sess.ID,
		"points", series.Len(),
	)

	if s.archive != nil {
		if err := s.archive.SaveSeries(ctx, wellID, series, now); err != nil {
			s.metrics.SinkErrors.WithLabelValues("archive").Inc()
			s.logger.Error("archive observations failed", "well_id", wellID, "error", err)
		}
	}
	return sess, nil
}

// issuedID returns sessionID when the store holds it and "" otherwise, so a
// client can't choose its own session id.
func (s *Service) issuedID(ctx context.Context, sessionID string) (string, error) {
	if !session.ValidID(sessionID) {
		return "", nil
	}
	_, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return sessionID, nil
}

// Session returns the visitor's session, or ErrNoSessionData when nothing
// has been fetched yet.
func (s *Service) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	if !session.ValidID(sessionID) {
		return nil, fmt.Errorf("%w: fetch a well first", domain.ErrNoSessionData)
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("%w: fetch a well first", domain.ErrNoSessionData)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// EndSession discards the visitor's session.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	if !session.ValidID(sessionID) {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Analytics builds the historical analytics report for the session's well.
func (s *Service) Analytics(ctx context.Context, sessionID string) (*session.Session, analytics.Report, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, analytics.Report{}, err
	}
	return sess, analytics.Build(sess.Series), nil
}

// ForecastOptions describes what the forecast control accepts.
type ForecastOptions struct {
	MinHorizon     int    `json:"min_horizon_days"`
	MaxHorizon     int    `json:"max_horizon_days"`
	DefaultHorizon int    `json:"default_horizon_days"`
	ModelAvailable bool   `json:"model_available"`
	Model          string `json:"model,omitempty"`
}

// ForecastOptions reports the horizon bounds and model availability.
func (s *Service) ForecastOptions() ForecastOptions {
	opts := ForecastOptions{
		MinHorizon:     s.opts.MinHorizon,
		MaxHorizon:     s.opts.MaxHorizon,
		DefaultHorizon: s.opts.DefaultHorizon,
		ModelAvailable: s.regressor != nil,
	}
	if s.regressor != nil {
		opts.Model = s.regressor.Name()
	}
	return opts
}

// DefaultHorizon is the horizon used when the visitor does not pick one.
func (s *Service) DefaultHorizon() int { return s.opts.DefaultHorizon }

// ForecastView is a completed forecast together with the history it extends.
type ForecastView struct {
	Run     domain.ForecastRun
	History []domain.Observation
}

// Forecast projects the session's well horizonDays days forward.
func (s *Service) Forecast(ctx context.Context, sessionID string, horizonDays int) (*ForecastView, error) {
	view, err := s.forecast(ctx, sessionID, horizonDays)
	if err != nil {
		s.metrics.Forecasts.WithLabelValues(domain.ErrorKind(err)).Inc()
		return nil, err
	}
	s.metrics.Forecasts.WithLabelValues("success").Inc()
	s.metrics.ForecastHorizon.Observe(float64(horizonDays))

	s.logger.Info("forecast generated",
		"run_id", view.Run.ID,
		"well_id", view.Run.WellID,
		"horizon_days", horizonDays,
		"model", view.Run.Model,
	)
	s.emit(ctx, view.Run)
	return view, nil
}

func (s *Service) forecast(ctx context.Context, sessionID string, horizonDays int) (*ForecastView, error) {
	if s.regressor == nil {
		return nil, fmt.Errorf("%w: no model loaded", domain.ErrModelUnavailable)
	}
	if horizonDays < s.opts.MinHorizon || horizonDays > s.opts.MaxHorizon {
		return nil, fmt.Errorf("%w: horizon must be between %d and %d days, got %d",
			domain.ErrInvalidHorizon, s.opts.MinHorizon, s.opts.MaxHorizon, horizonDays)
	}
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Series
	if s.opts.FillGaps && history.Len() >= domain.MinHistory {
		history = history.FillDaily()
	}

	start := time.Now()
	result, err := forecast.Forecast(ctx, history, s.regressor, horizonDays)
	if err != nil {
		return nil, err
	}
	s.metrics.ForecastDuration.Observe(time.Since(start).Seconds())

	return &ForecastView{
		Run: domain.ForecastRun{
			ID:          uuid.NewString(),
			WellID:      sess.WellID,
			HorizonDays: horizonDays,
			Model:       s.regressor.Name(),
			GeneratedAt: s.clock.Now().UTC(),
			Points:      result.Points,
		},
		History: sess.Series.Observations(),
	}, nil
}

// emit archives and publishes a forecast run. Failures are logged and
// counted but never fail the request.
func (s *Service) emit(ctx context.Context, run domain.ForecastRun) {
	if s.archive != nil {
		if err := s.archive.SaveForecastRun(ctx, run); err != nil {
			s.metrics.SinkErrors.WithLabelValues("archive").Inc()
			s.logger.Error("archive forecast run failed", "run_id", run.ID, "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishForecast(ctx, run); err != nil {
			s.metrics.SinkErrors.WithLabelValues("publish").Inc()
			s.logger.Error("publish forecast run failed", "run_id", run.ID, "error", err)
		}
	}
}

// ExportCSV writes the session's series as "date,value" rows, the format the
// offline trainer reads. It returns the exported well id.
func (s *Service) ExportCSV(ctx context.Context, sessionID string, w io.Writer) (string, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(w, sess.Series); err != nil {
		return "", err
	}
	return sess.WellID, nil
}

// WriteCSV writes series as a "date,value" CSV with a header row.
func WriteCSV(w io.Writer, series domain.TimeSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "value"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, o := range series.Observations() {
		rec := []string{o.Date.Format(time.DateOnly), strconv.FormatFloat(o.Value, 'f', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a "date,value" CSV as written by WriteCSV. A header row is
// optional.
func ReadCSV(r io.Reader) (domain.TimeSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return domain.TimeSeries{}, fmt.Errorf("%w: %v", domain.ErrMalformedData, err)
	}
	obs := make([]domain.Observation, 0, len(records))
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[0], "date") {
			continue
		}
		d, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[0]))
		if err != nil {
			return domain.TimeSeries{}, fmt.Errorf("%w: line %d: %v", domain.ErrMalformedData, i+1, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return domain.TimeSeries{}, fmt.Errorf("%w: line %d: %v", domain.ErrMalformedData, i+1, err)
		}
		obs = append(obs, domain.Observation{Date: d, Value: v})
	}
	return domain.NewTimeSeries(obs), nil
}
