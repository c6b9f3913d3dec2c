package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/assessment"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/curriculum"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/gate"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/recommend"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/remote"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/report"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/resolve"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type healthCheck struct {
	name  string
	check func(context.Context) error
}

// app holds the wired pipeline served by the companion API.
type app struct {
	catalog    *curriculum.Catalog
	content    *resolve.ContentResolver
	topics     *resolve.TopicResolver
	recs       *recommend.Consumer
	gate       *gate.Gate
	engine     *assessment.Engine
	topicCount int
	checks     []healthCheck
}

// newMux creates the HTTP router for the companion API.
func newMux(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)

	mux.HandleFunc("GET /v1/subjects", a.handleSubjects)
	mux.HandleFunc("GET /v1/content", a.handleContent)
	mux.HandleFunc("POST /v1/content/regenerate", a.handleContentRegenerate)
	mux.HandleFunc("GET /v1/topics", a.handleTopics)
	mux.HandleFunc("POST /v1/topics/regenerate", a.handleTopicsRegenerate)
	mux.HandleFunc("GET /v1/recommendation", a.handleRecommendation)
	mux.HandleFunc("GET /v1/completion", a.handleCompletion)

	mux.HandleFunc("POST /v1/sessions", a.handleCreateSession)
	mux.HandleFunc("GET /v1/sessions/{id}", a.withSession(a.handleGetSession))
	mux.HandleFunc("DELETE /v1/sessions/{id}", a.handleAbandonSession)
	mux.HandleFunc("POST /v1/sessions/{id}/mode", a.withSession(a.handleSelectMode))
	mux.HandleFunc("POST /v1/sessions/{id}/reload", a.withSession(a.handleReload))
	mux.HandleFunc("POST /v1/sessions/{id}/play", a.withSession(simple((*assessment.Session).RecordPlay)))
	mux.HandleFunc("POST /v1/sessions/{id}/pause", a.withSession(simple((*assessment.Session).Pause)))
	mux.HandleFunc("POST /v1/sessions/{id}/resume", a.withSession(simple((*assessment.Session).Resume)))
	mux.HandleFunc("POST /v1/sessions/{id}/quiz", a.withSession(a.handleStartQuiz))
	mux.HandleFunc("POST /v1/sessions/{id}/submit", a.withSession(a.handleSubmit))
	mux.HandleFunc("POST /v1/sessions/{id}/retry", a.withSession(simple((*assessment.Session).Retry)))
	mux.HandleFunc("POST /v1/sessions/{id}/continue", a.withSession(a.handleContinue))

	mux.HandleFunc("GET /v1/attempts/latest", a.handleLatestAttempt)
	mux.HandleFunc("GET /v1/history", a.handleHistory)
	mux.HandleFunc("GET /v1/history/export", a.handleHistoryExport)

	return withBearer(mux)
}

// withBearer forwards the caller's bearer credential to the remote client.
func withBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
			r = r.WithContext(remote.WithToken(r.Context(), strings.TrimSpace(token)))
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (a *app) handleReadyz(w http.ResponseWriter, r *http.Request) {
	for _, hc := range a.checks {
		if err := hc.check(r.Context()); err != nil {
			slog.Warn("readiness check failed", "check", hc.name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "failed": hc.name})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (a *app) handleSubjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"subjects": a.catalog.Subjects()})
}

func (a *app) contentRequest(r *http.Request) (remote.ContentRequest, error) {
	q := r.URL.Query()
	mode, err := learning.ParseMode(q.Get("mode"))
	if err != nil {
		return remote.ContentRequest{}, fmt.Errorf("%w: %v", resolve.ErrInvalidRequest, err)
	}
	subject := q.Get("subject")
	difficulty := q.Get("difficulty")
	if difficulty == "" {
		difficulty = a.catalog.Difficulty(subject)
	}
	return remote.ContentRequest{
		Subject:    subject,
		Topic:      q.Get("topic"),
		Mode:       mode,
		Difficulty: difficulty,
	}, nil
}

func (a *app) handleContent(w http.ResponseWriter, r *http.Request) {
	req, err := a.contentRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	unit, err := a.content.Resolve(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

func (a *app) handleContentRegenerate(w http.ResponseWriter, r *http.Request) {
	req, err := a.contentRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	unit, err := a.content.Regenerate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

func (a *app) topicRequest(r *http.Request) (resolve.TopicRequest, error) {
	q := r.URL.Query()
	mode := learning.DefaultMode
	if raw := q.Get("mode"); raw != "" {
		m, err := learning.ParseMode(raw)
		if err != nil {
			return resolve.TopicRequest{}, fmt.Errorf("%w: %v", resolve.ErrInvalidRequest, err)
		}
		mode = m
	}
	subject := q.Get("subject")
	return resolve.TopicRequest{
		Subject: subject,
		Mode:    mode,
		Count:   a.catalog.TopicCount(subject, a.topicCount),
	}, nil
}

// admitted consults the completion gate. A subject whose modes are not all
// assessed gets 409 naming the next mode to take instead of its topics.
func (a *app) admitted(w http.ResponseWriter, r *http.Request, subject string) bool {
	if subject == "" {
		writeError(w, fmt.Errorf("%w: subject is required", resolve.ErrInvalidRequest))
		return false
	}
	status, next, ok := a.gate.Admit(r.Context(), subject)
	if ok {
		return true
	}
	writeJSON(w, http.StatusConflict, map[string]any{
		"error":     "topic list locked until every learning mode is assessed",
		"retryable": false,
		"admitted":  false,
		"status":    status,
		"nextMode":  next,
	})
	return false
}

func (a *app) handleTopics(w http.ResponseWriter, r *http.Request) {
	req, err := a.topicRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !a.admitted(w, r, req.Subject) {
		return
	}
	set, err := a.topics.Resolve(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (a *app) handleTopicsRegenerate(w http.ResponseWriter, r *http.Request) {
	req, err := a.topicRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !a.admitted(w, r, req.Subject) {
		return
	}
	set, err := a.topics.Regenerate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (a *app) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := a.recs.Get(r.Context(), r.URL.Query().Get("subject"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *app) handleCompletion(w http.ResponseWriter, r *http.Request) {
	status, next, ok := a.gate.Admit(r.Context(), r.URL.Query().Get("subject"))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"admitted": ok,
		"nextMode": next,
	})
}

type createSessionRequest struct {
	Subject    string `json:"subject"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

func (a *app) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = a.catalog.Difficulty(req.Subject)
	}
	s, err := a.engine.NewSession(req.Subject, req.Topic, req.Difficulty)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", resolve.ErrInvalidRequest, err))
		return
	}
	writeJSON(w, http.StatusCreated, s.View())
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *assessment.Session)

func (a *app) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.engine.Session(r.PathValue("id"))
		if !ok {
			writeError(w, fmt.Errorf("session %q: %w", r.PathValue("id"), learning.ErrNotFound))
			return
		}
		h(w, r, s)
	}
}

// simple adapts a session action without a request body.
func simple(action func(*assessment.Session) error) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, s *assessment.Session) {
		if err := action(s); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.View())
	}
}

func (a *app) handleGetSession(w http.ResponseWriter, r *http.Request, s *assessment.Session) {
	writeJSON(w, http.StatusOK, s.View())
}

func (a *app) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	if !a.engine.CloseSession(r.PathValue("id")) {
		writeError(w, fmt.Errorf("session %q: %w", r.PathValue("id"), learning.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type modeRequest struct {
	Mode learning.Mode `json:"mode"`
}

func (a *app) handleSelectMode(w http.ResponseWriter, r *http.Request, s *assessment.Session) {
	var req modeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.Mode.Valid() {
		writeError(w, fmt.Errorf("%w: unknown mode %q", resolve.ErrInvalidRequest, req.Mode))
		return
	}
	if err := s.SelectMode(r.Context(), req.Mode); err != nil {
		writeSessionError(w, err, s)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (a *app) handleReload(w http.ResponseWriter, r *http.Request, s *assessment.Session) {
	if err := s.ReloadContent(r.Context()); err != nil {
		writeSessionError(w, err, s)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (a *app) handleStartQuiz(w http.ResponseWriter, r *http.Request, s *assessment.Session) {
	if err := s.StartQuiz(r.Context()); err != nil {
		writeSessionError(w, err, s)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

func (a *app) handleSubmit(w http.ResponseWriter, r *http.Request, s *assessment.Session) {
	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	attempt, err := s.Submit(r.Context(), req.Answers)
	if err != nil {
		writeSessionError(w, err, s)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attempt": attempt,
		"excels":  attempt.Excels(),
		"session": s.View(),
	})
}

func (a *app) handleContinue(w http.ResponseWriter, r *http.Request, s *assessment.Session) {
	var req modeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Mode != "" && !req.Mode.Valid() {
		writeError(w, fmt.Errorf("%w: unknown mode %q", resolve.ErrInvalidRequest, req.Mode))
		return
	}
	if err := s.Continue(r.Context(), req.Mode); err != nil {
		writeSessionError(w, err, s)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (a *app) handleLatestAttempt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	attempt, found, err := a.engine.AlreadyCompleted(r.Context(), q.Get("subject"), q.Get("topic"))
	if err != nil {
		writeError(w, err)
		return
	}
	body := map[string]any{"completed": found}
	if found {
		body["attempt"] = attempt
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *app) handleHistory(w http.ResponseWriter, r *http.Request) {
	attempts, err := a.engine.History(r.Context(), r.URL.Query().Get("subject"))
	if err != nil {
		writeError(w, err)
		return
	}
	if attempts == nil {
		attempts = []learning.QuizAttempt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

func (a *app) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	attempts, err := a.engine.History(r.Context(), subject)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteAttempts(&buf, attempts); err != nil {
		writeError(w, err)
		return
	}

	name := "history.xlsx"
	if subject != "" {
		name = "history-" + subject + ".xlsx"
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", resolve.ErrInvalidRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response not written", "error", err)
	}
}

// statusFor maps pipeline errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, resolve.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, learning.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, learning.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, learning.ErrConflict),
		errors.Is(err, assessment.ErrInvalidTransition),
		errors.Is(err, assessment.ErrContentLoading),
		errors.Is(err, assessment.ErrNoQuiz):
		return http.StatusConflict
	case errors.Is(err, assessment.ErrStale), errors.Is(err, assessment.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, learning.ErrTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, learning.ErrValidation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) map[string]any {
	return map[string]any{
		"error":     err.Error(),
		"retryable": learning.Retryable(err),
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody(err))
}

// writeSessionError reports a failed session action along with the
// session's resulting state, since content and quiz failures still move it.
func writeSessionError(w http.ResponseWriter, err error, s *assessment.Session) {
	body := errorBody(err)
	body["session"] = s.View()
	writeJSON(w, statusFor(err), body)
}
