package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pocket-calc/internal/engine"
	"pocket-calc/internal/handlers"
	"pocket-calc/internal/observability"
	"pocket-calc/internal/session"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// maxKeysPerRequest bounds the work done by a single press or evaluate call.
const maxKeysPerRequest = 256

// Handler serves the calculator endpoints backed by a session store.
type Handler struct {
	store *session.Store
}

func NewHandler(store *session.Store) *Handler {
	return &Handler{store: store}
}

// keypad is anything that accepts a batch of parsed keys: a stored session
// or a throwaway engine. observe wraps every key and must call apply once.
type keypad interface {
	PressTokens(tokens []engine.Token, observe func(i int, t engine.Token, apply func() (engine.View, error))) engine.View
}

type engineKeypad struct {
	e *engine.Engine
}

func (k engineKeypad) PressTokens(tokens []engine.Token, observe func(i int, t engine.Token, apply func() (engine.View, error))) engine.View {
	for i, t := range tokens {
		observe(i, t, func() (engine.View, error) {
			err := k.e.PressToken(t)
			return k.e.View(), err
		})
	}
	return k.e.View()
}

// startSpan opens the handler span and returns the trace-correlated logger
// and request ID.
func startSpan(r *http.Request, opName string) (context.Context, trace.Span, *zap.Logger, string) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.%s", opName),
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", requestID),
		),
	)
	return ctx, span, logger, requestID
}

// CreateSession handles POST /calculator/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger, requestID := startSpan(r, "session.create")
	defer span.End()

	sess, err := h.store.Create()
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "session.create", "session store unavailable", err, http.StatusServiceUnavailable, w)
		return
	}

	sessionCounter.Add(ctx, 1)
	span.SetAttributes(attribute.String("calculator.session_id", sess.ID))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator session opened",
		zap.String("session_id", sess.ID),
		zap.String("request_id", requestID),
	)

	w.Header().Set("Location", "/calculator/sessions/"+sess.ID)
	handlers.WriteJSON(w, http.StatusCreated, SessionResponse{ID: sess.ID, View: sess.View()})
}

// GetSession handles GET /calculator/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger, _ := startSpan(r, "session.view")
	defer span.End()

	sess, ok := h.lookup(ctx, span, logger, "session.view", w, r)
	if !ok {
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, SessionResponse{ID: sess.ID, View: sess.View()})
}

// History handles GET /calculator/sessions/{id}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger, _ := startSpan(r, "session.history")
	defer span.End()

	sess, ok := h.lookup(ctx, span, logger, "session.history", w, r)
	if !ok {
		return
	}

	entries := sess.History()
	span.SetAttributes(attribute.Int("calculator.history.size", len(entries)))
	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, HistoryResponse{ID: sess.ID, Entries: entries})
}

// DeleteSession handles DELETE /calculator/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger, requestID := startSpan(r, "session.delete")
	defer span.End()

	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("calculator.session_id", id))

	if err := h.store.Delete(id); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "session.delete", "session not found", err, http.StatusNotFound, w)
		return
	}

	span.SetStatus(codes.Ok, "")
	logger.Info("calculator session closed",
		zap.String("session_id", id),
		zap.String("request_id", requestID),
	)
	w.WriteHeader(http.StatusNoContent)
}

// Press handles POST /calculator/sessions/{id}/press. It applies keys to a
// stored calculator, creating a child span for every key. A division by zero
// is not a request failure: the returned view carries the error marker.
func (h *Handler) Press(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger, requestID := startSpan(r, "press")
	defer span.End()

	var req PressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "press", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	keys := req.keys()
	if err := validateKeys(keys); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "press", err.Error(), err, http.StatusBadRequest, w)
		return
	}

	sess, ok := h.lookup(ctx, span, logger, "press", w, r)
	if !ok {
		return
	}

	start := time.Now()
	view, ignored := applyKeys(ctx, logger, sess, keys)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	pressHistogram.Record(ctx, elapsed, metric.WithAttributes(attribute.String("operation", "press")))

	span.AddEvent("press.complete", trace.WithAttributes(
		attribute.Int("keys", len(keys)),
		attribute.Int("ignored", len(ignored)),
		attribute.String("result", view.Result),
	))
	span.SetAttributes(attribute.String("calculator.result", view.Result))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator keys applied",
		zap.String("session_id", sess.ID),
		zap.Int("keys", len(keys)),
		zap.Strings("ignored", ignored),
		zap.String("expression", view.Expression),
		zap.String("result", view.Result),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, SessionResponse{ID: sess.ID, View: view, Ignored: ignored})
}

// Evaluate handles POST /calculator/evaluate. It runs the keys on a fresh
// calculator that is discarded afterwards.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger, requestID := startSpan(r, "evaluate")
	defer span.End()

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	if err := validateKeys(req.Tokens); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", err.Error(), err, http.StatusBadRequest, w)
		return
	}

	e := engine.New()

	start := time.Now()
	view, ignored := applyKeys(ctx, logger, engineKeypad{e: e}, req.Tokens)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	pressHistogram.Record(ctx, elapsed, metric.WithAttributes(attribute.String("operation", "evaluate")))

	span.SetAttributes(attribute.String("calculator.result", view.Result))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator evaluation completed",
		zap.Int("keys", len(req.Tokens)),
		zap.String("expression", view.Expression),
		zap.String("result", view.Result),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, EvaluateResponse{
		Tokens:  req.Tokens,
		Ignored: ignored,
		View:    view,
		History: e.History(),
	})
}

func (h *Handler) lookup(ctx context.Context, span trace.Span, logger *zap.Logger, opName string, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("calculator.session_id", id))

	sess, err := h.store.Get(id)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "session not found", err, http.StatusNotFound, w)
		return nil, false
	}
	return sess, true
}

func validateKeys(keys []string) error {
	switch {
	case len(keys) == 0:
		return errors.New("no tokens provided")
	case len(keys) > maxKeysPerRequest:
		return fmt.Errorf("too many tokens: %d > %d", len(keys), maxKeysPerRequest)
	}
	return nil
}

// applyKeys parses keys, skipping unrecognised labels, and applies the rest
// to kp as one batch with a child span per key.
func applyKeys(ctx context.Context, logger *zap.Logger, kp keypad, keys []string) (engine.View, []string) {
	parent := trace.SpanFromContext(ctx)

	var (
		ignored []string
		tokens  []engine.Token
		indexes []int // position of each token in keys
	)

	for i, key := range keys {
		tok, ok := engine.ParseToken(key)
		if !ok {
			ignored = append(ignored, key)
			parent.AddEvent("key.ignored", trace.WithAttributes(
				attribute.Int("key.index", i),
				attribute.String("key.label", key),
			))
			continue
		}
		tokens = append(tokens, tok)
		indexes = append(indexes, i)
	}

	view := kp.PressTokens(tokens, func(n int, tok engine.Token, apply func() (engine.View, error)) {
		i := indexes[n]

		_, keySpan := tracer.Start(ctx, "calculator.key."+tok.Kind.String(),
			trace.WithAttributes(
				attribute.Int("key.index", i),
				attribute.String("key.label", tok.String()),
			),
		)
		defer keySpan.End()

		view, err := apply()
		keypressCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", tok.Kind.String())))

		if err != nil {
			keySpan.RecordError(err)
			keySpan.SetStatus(codes.Error, err.Error())
			errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", failureKind(err))))

			logger.Warn("calculation failed",
				zap.Int("key_index", i),
				zap.String("key", tok.String()),
				zap.String("expression", view.Expression),
				zap.Error(err),
			)
		} else {
			keySpan.SetStatus(codes.Ok, "")
		}

		keySpan.SetAttributes(attribute.String("calculator.result", view.Result))
	})

	return view, ignored
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, engine.ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, engine.ErrOverflow):
		return "overflow"
	default:
		return "calculate"
	}
}
