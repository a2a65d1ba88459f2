package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"sampletrack/internal/alerting"
	"sampletrack/internal/custody"
	"sampletrack/internal/notify"
	"sampletrack/internal/sample"
	"sampletrack/internal/telemetry"
	"sampletrack/internal/timeline"
	"sampletrack/internal/tracking"
	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
	"sampletrack/pkg/platform/httputil"
	"sampletrack/pkg/platform/middleware/device"
	"sampletrack/pkg/requestcontext"
)

// Service defines the interface for tracking operations.
type Service interface {
	Register(ctx context.Context, cmd tracking.RegisterCommand) (*sample.Sample, error)
	Get(ctx context.Context, sampleID id.SampleID) (*sample.Sample, error)
	Transition(ctx context.Context, sampleID id.SampleID, target sample.Status, expectedVersion int64) (*sample.Sample, error)
	IngestTelemetry(ctx context.Context, sampleID id.SampleID, raw telemetry.Raw) (*tracking.IngestResult, error)
	Readings(ctx context.Context, sampleID id.SampleID, limit int) ([]*telemetry.Reading, error)
	TransferCustody(ctx context.Context, sampleID id.SampleID, req custody.TransferRequest) (*tracking.TransferResult, error)
	CustodyHistory(ctx context.Context, sampleID id.SampleID) ([]*custody.Record, error)
	VerifyCustody(ctx context.Context, sampleID id.SampleID) (custody.Verification, error)
	Tracking(ctx context.Context, sampleID id.SampleID) (*tracking.Snapshot, error)
	Events(ctx context.Context, sampleID id.SampleID, since int64, limit int) ([]timeline.Event, error)
	Subscribe(ctx context.Context, sampleID id.SampleID) (*notify.Subscription, error)
	Alerts(ctx context.Context, sampleID id.SampleID, openOnly bool) ([]*alerting.Alert, error)
	AcknowledgeAlert(ctx context.Context, sampleID id.SampleID, alertID id.AlertID, note string) (*alerting.Alert, error)
	ResolveAlert(ctx context.Context, sampleID id.SampleID, alertID id.AlertID, note string) (*alerting.Alert, error)
	Thresholds(ctx context.Context, sampleID id.SampleID) (alerting.Thresholds, error)
	SetThresholds(ctx context.Context, sampleID id.SampleID, t alerting.Thresholds) (alerting.Thresholds, error)
	ReleaseHold(ctx context.Context, sampleID id.SampleID, note string) (*sample.Sample, error)
}

// Handler wires sample tracking endpoints to the lifecycle controller.
type Handler struct {
	service        Service
	logger         *slog.Logger
	originPatterns []string
}

type Option func(*Handler)

// WithOriginPatterns allows cross-origin websocket clients matching patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) {
		h.originPatterns = patterns
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts tracking endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/samples", h.handleCreate)
	r.Route("/samples/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Post("/status", h.handleTransition)
		r.Post("/telemetry", h.handleTelemetry)
		r.Get("/telemetry", h.handleReadings)
		r.Post("/custody-transfer", h.handleCustodyTransfer)
		r.Get("/custody", h.handleCustodyHistory)
		r.Get("/custody/verify", h.handleVerifyCustody)
		r.Get("/tracking", h.handleTracking)
		r.Get("/events", h.handleEvents)
		r.Get("/stream", h.handleStream)
		r.Get("/alerts", h.handleAlerts)
		r.Post("/alerts/{alertId}/acknowledge", h.handleAcknowledgeAlert)
		r.Post("/alerts/{alertId}/resolve", h.handleResolveAlert)
		r.Get("/thresholds", h.handleGetThresholds)
		r.Put("/thresholds", h.handleSetThresholds)
		r.Post("/hold/release", h.handleReleaseHold)
	})
}

func (h *Handler) sampleID(w http.ResponseWriter, r *http.Request) (id.SampleID, bool) {
	sampleID, err := id.ParseSampleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.SampleID{}, false
	}
	return sampleID, true
}

// requireActor rejects mutations that arrive without a gateway-asserted actor.
func (h *Handler) requireActor(w http.ResponseWriter, ctx context.Context) (string, bool) {
	actorID := requestcontext.ActorID(ctx)
	if actorID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "actor identity required"))
		return "", false
	}
	return actorID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, sampleID id.SampleID, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"sample_id", sampleID.String(),
		"error", err,
	}
	if dErrors.GetCode(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

// handleCreate handles POST /samples.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateSampleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	smp, err := h.service.Register(ctx, req.Command())
	if err != nil {
		h.fail(ctx, w, "sample registration failed", id.SampleID{}, err)
		return
	}
	w.Header().Set("Location", "/samples/"+smp.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, FromSample(smp))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	smp, err := h.service.Get(ctx, sampleID)
	if err != nil {
		h.fail(ctx, w, "get sample failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSample(smp))
}

// handleTransition handles POST /samples/{id}/status.
func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[StatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	smp, err := h.service.Transition(ctx, sampleID, req.parsedStatus, *req.ExpectedVersion)
	if err != nil {
		h.fail(ctx, w, "status transition failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSample(smp))
}

// handleTelemetry handles POST /samples/{id}/telemetry. Devices may post
// without an actor; device_id, or the X-Device-ID header when the body
// omits it, identifies them.
func (h *Handler) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TelemetryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	raw := req.Raw()
	if raw.DeviceID == "" {
		raw.DeviceID = device.GetDeviceID(ctx)
	}
	res, err := h.service.IngestTelemetry(ctx, sampleID, raw)
	if err != nil {
		h.fail(ctx, w, "telemetry ingest failed", sampleID, err)
		return
	}

	h.logger.DebugContext(ctx, "telemetry accepted",
		"request_id", requestID,
		"sample_id", sampleID.String(),
		"type", string(res.Reading.Type),
		"within_range", res.WithinRange,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusAccepted, FromIngest(res))
}

func (h *Handler) handleReadings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", defaultEventLimit)
	if err != nil || limit < 1 || limit > maxEventLimit {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "limit must be between 1 and %d", maxEventLimit))
		return
	}
	readings, err := h.service.Readings(ctx, sampleID, int(limit))
	if err != nil {
		h.fail(ctx, w, "list readings failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReadings(readings))
}

// handleCustodyTransfer handles POST /samples/{id}/custody-transfer.
func (h *Handler) handleCustodyTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CustodyTransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.TransferCustody(ctx, sampleID, req.Transfer(bearerToken(r)))
	if err != nil {
		h.fail(ctx, w, "custody transfer failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromTransfer(res))
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	v := r.Header.Get("Authorization")
	if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return strings.TrimSpace(v[len(prefix):])
	}
	return ""
}

func (h *Handler) handleCustodyHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	records, err := h.service.CustodyHistory(ctx, sampleID)
	if err != nil {
		h.fail(ctx, w, "custody history failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromChain(records))
}

func (h *Handler) handleVerifyCustody(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	v, err := h.service.VerifyCustody(ctx, sampleID)
	if err != nil {
		h.fail(ctx, w, "custody verification failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) handleTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	snap, err := h.service.Tracking(ctx, sampleID)
	if err != nil {
		h.fail(ctx, w, "tracking snapshot failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snap))
}

// handleEvents handles GET /samples/{id}/events?since=&limit=.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	since, err := queryInt(r, "since", 0)
	if err != nil || since < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "since must be a non-negative sequence"))
		return
	}
	limit, err := queryInt(r, "limit", defaultEventLimit)
	if err != nil || limit < 1 || limit > maxEventLimit {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "limit must be between 1 and %d", maxEventLimit))
		return
	}

	events, err := h.service.Events(ctx, sampleID, since, int(limit))
	if err != nil {
		h.fail(ctx, w, "list events failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvents(events, since, int(limit)))
}

func queryInt(r *http.Request, key string, def int64) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	openOnly := false
	if raw := r.URL.Query().Get("open"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "open must be a boolean"))
			return
		}
		openOnly = v
	}
	alerts, err := h.service.Alerts(ctx, sampleID, openOnly)
	if err != nil {
		h.fail(ctx, w, "list alerts failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAlerts(alerts))
}

type alertAction func(ctx context.Context, sampleID id.SampleID, alertID id.AlertID, note string) (*alerting.Alert, error)

func (h *Handler) handleAlertAction(w http.ResponseWriter, r *http.Request, name string, action alertAction) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	alertID, err := id.ParseAlertID(chi.URLParam(r, "alertId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[NoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	alert, err := action(ctx, sampleID, alertID, req.Note)
	if err != nil {
		h.fail(ctx, w, name+" alert failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alert)
}

func (h *Handler) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	h.handleAlertAction(w, r, "acknowledge", h.service.AcknowledgeAlert)
}

func (h *Handler) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	h.handleAlertAction(w, r, "resolve", h.service.ResolveAlert)
}

func (h *Handler) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Thresholds(ctx, sampleID)
	if err != nil {
		h.fail(ctx, w, "get thresholds failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleSetThresholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ThresholdsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	t, err := h.service.SetThresholds(ctx, sampleID, req.parsed)
	if err != nil {
		h.fail(ctx, w, "set thresholds failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleReleaseHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[NoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	smp, err := h.service.ReleaseHold(ctx, sampleID, req.Note)
	if err != nil {
		h.fail(ctx, w, "release hold failed", sampleID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSample(smp))
}
