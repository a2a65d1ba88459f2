package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"sampletrack/internal/timeline"
	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
	"sampletrack/pkg/platform/httputil"
	"sampletrack/pkg/requestcontext"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second
)

// handleStream handles WS /samples/{id}/stream. With ?since=N the stream
// first replays the timeline after N, then switches to live events; events
// already replayed are not sent twice. Without since it is live only, and a
// client that reconnects fills the gap from GET /events.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sampleID, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	since := int64(-1)
	if r.URL.Query().Has("since") {
		v, err := queryInt(r, "since", 0)
		if err != nil || v < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "since must be a non-negative sequence"))
			return
		}
		since = v
	}

	// Subscribe before replaying so nothing appended in between is missed.
	sub, err := h.service.Subscribe(ctx, sampleID)
	if err != nil {
		h.fail(ctx, w, "subscribe failed", sampleID, err)
		return
	}
	defer sub.Close()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			"request_id", requestcontext.RequestID(ctx),
			"sample_id", sampleID.String(),
			"error", err,
		)
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx = conn.CloseRead(ctx)

	last := since
	if since >= 0 {
		last, err = h.replay(ctx, conn, sampleID, since)
		if err != nil {
			h.logger.InfoContext(ctx, "stream closed during replay",
				"sample_id", sampleID.String(),
				"error", err,
			)
			return
		}
	}

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			if ev.Sequence <= last {
				continue
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				h.logger.InfoContext(ctx, "stream write failed",
					"sample_id", sampleID.String(),
					"dropped", sub.Dropped(),
					"error", err,
				)
				return
			}
			last = ev.Sequence
		}
	}
}

func (h *Handler) replay(ctx context.Context, conn *websocket.Conn, sampleID id.SampleID, since int64) (int64, error) {
	last := since
	for {
		events, err := h.service.Events(ctx, sampleID, last, maxEventLimit)
		if err != nil {
			return last, err
		}
		for _, ev := range events {
			if err := writeEvent(ctx, conn, ev); err != nil {
				return last, err
			}
			last = ev.Sequence
		}
		if len(events) < maxEventLimit {
			return last, nil
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev timeline.Event) error {
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, ev)
}
