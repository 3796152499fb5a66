package api

import (
	"fmt"
	"time"

	models "CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
	"CardPulse/internal/service/metrics"
	"CardPulse/internal/service/ratelimit"
	"CardPulse/internal/usecase"
	xhttp "CardPulse/pkg/http"
	xlogger "CardPulse/pkg/logger"
	xutil "CardPulse/pkg/util"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// MarketEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type MarketEchoHandler struct {
	logger   *xlogger.Logger
	history  *usecase.HistoryUseCase
	signals  *usecase.SignalsUseCase
	obs      *usecase.ObservationsUseCase
	ingest   *usecase.IngestUseCase
	outcomes *usecase.OutcomeBatchUseCase
	rl       *ratelimit.Limiter
}

func NewMarketEchoHandler(
	logger *xlogger.Logger,
	history *usecase.HistoryUseCase,
	sig *usecase.SignalsUseCase,
	obs *usecase.ObservationsUseCase,
	ingest *usecase.IngestUseCase,
	outcomes *usecase.OutcomeBatchUseCase,
) *MarketEchoHandler {
	metrics.Register()
	return &MarketEchoHandler{
		logger:   logger,
		history:  history,
		signals:  sig,
		obs:      obs,
		ingest:   ingest,
		outcomes: outcomes,
		rl:       ratelimit.New(),
	}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/history", h.History)
	g.GET("/index", h.MarketIndex)
	g.GET("/signals", h.Signals)
	g.GET("/observations", h.Observations)
	g.POST("/observations", h.IngestObservations)
	g.POST("/outcomes/run", h.RunOutcomes)
}

func (h *MarketEchoHandler) History(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.MarketLatency.WithLabelValues("history").Observe(time.Since(start).Seconds()) }()

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	period := domrepo.NormalizePeriod(req.Period)

	res, err := h.history.GetHistory(c.Request().Context(), usecase.GetHistoryParams{
		CardID:  req.CardID,
		Period:  period,
		Filters: filtersFromHistory(req),
		Fill:    req.Fill,
	})
	if err != nil {
		metrics.MarketErrors.WithLabelValues("history").Inc()
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res.Fallback {
		metrics.CompositorFallbacks.WithLabelValues(period.Name).Inc()
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) MarketIndex(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.MarketLatency.WithLabelValues("index").Observe(time.Since(start).Seconds()) }()

	req := &models.MarketIndexRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	period := domrepo.NormalizePeriod(req.Period)

	res, err := h.history.GetMarketIndex(c.Request().Context(), models.Currency(req.Currency), period, models.FilterSet{
		Condition: models.Condition(req.Condition),
		Language:  models.Language(req.Language),
		VenueID:   req.VenueID,
		Foil:      req.Foil,
	}, req.Fill)
	if err != nil {
		metrics.MarketErrors.WithLabelValues("index").Inc()
		h.logger.Error("index usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res.Fallback {
		metrics.CompositorFallbacks.WithLabelValues(period.Name).Inc()
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Signals(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.MarketLatency.WithLabelValues("signals").Observe(time.Since(start).Seconds()) }()

	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.signals.GetSignals(c.Request().Context(), usecase.GetSignalsParams{
		CardID:   req.CardID,
		Currency: models.Currency(req.Currency),
		Period:   domrepo.NormalizePeriod(req.Period),
	})
	if err != nil {
		metrics.MarketErrors.WithLabelValues("signals").Inc()
		h.logger.Error("signals usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Observations(c echo.Context) error {
	req := &models.ObservationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError(err.Error()))
	}

	res, err := h.obs.GetObservations(c.Request().Context(), usecase.GetObservationsParams{
		CardID: req.CardID,
		From:   from,
		To:     to,
		Limit:  req.Limit,
	})
	if err != nil {
		metrics.MarketErrors.WithLabelValues("observations").Inc()
		h.logger.Error("observations usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) IngestObservations(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.MarketLatency.WithLabelValues("ingest").Observe(time.Since(start).Seconds()) }()

	if !h.rl.Allow(c.RealIP()+":ingest", 20, 10) {
		h.logger.Warn("ingest rate_limited", xlogger.String("remote", c.RealIP()))
		return echo.NewHTTPError(429, "rate limited")
	}

	req := &models.IngestBatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	obs := make([]*models.PriceObservation, 0, len(req.Observations))
	for i := range req.Observations {
		obs = append(obs, observationFromRequest(&req.Observations[i]))
	}

	stats, err := h.ingest.IngestBatch(c.Request().Context(), obs)
	if err != nil {
		metrics.MarketErrors.WithLabelValues("ingest").Inc()
		h.logger.Error("ingest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, stats)
}

func (h *MarketEchoHandler) RunOutcomes(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.MarketLatency.WithLabelValues("outcomes").Observe(time.Since(start).Seconds()) }()

	req := &models.RunOutcomesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	stats, err := h.outcomes.EvaluatePending(c.Request().Context(), req.BatchSize)
	if err != nil {
		metrics.MarketErrors.WithLabelValues("outcomes").Inc()
		h.logger.Error("outcomes usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, stats)
}

func filtersFromHistory(req *models.HistoryRequest) models.FilterSet {
	return models.FilterSet{
		Currency:  models.Currency(req.Currency),
		Condition: models.Condition(req.Condition),
		Language:  models.Language(req.Language),
		VenueID:   req.VenueID,
		Foil:      req.Foil,
	}
}

// parseRange accepts RFC3339 or unix seconds; empty from/to default to
// the last 24 hours ending now.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	to := time.Now().UTC()
	if toStr != "" {
		t, err := parseTimestamp(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	from := to.Add(-24 * time.Hour)
	if fromStr != "" {
		t, err := parseTimestamp(fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	return from, to, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, ok := xutil.ParseTime(s); ok {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q: want RFC3339 or unix seconds", s)
}

// observationFromRequest never fails: an unparseable timestamp or price
// yields a zero value, which IngestBatch drops and counts. One bad row
// must not fail the batch.
func observationFromRequest(r *models.IngestRequest) *models.PriceObservation {
	ts, err := parseTimestamp(r.Time)
	if err != nil {
		ts = time.Time{}
	}
	return &models.PriceObservation{
		Time:          ts,
		CardID:        r.CardID,
		VenueID:       r.VenueID,
		Condition:     models.Condition(r.Condition),
		IsFoil:        r.IsFoil,
		Language:      models.Language(r.Language),
		Price:         decOrZero(r.Price),
		PriceLow:      decOrZero(r.PriceLow),
		PriceMid:      decOrZero(r.PriceMid),
		PriceHigh:     decOrZero(r.PriceHigh),
		PriceMarket:   decOrZero(r.PriceMarket),
		Currency:      models.Currency(r.Currency),
		NumListings:   r.NumListings,
		TotalQuantity: r.TotalQuantity,
	}
}

func decOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
