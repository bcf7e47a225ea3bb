package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/clinvoc/termgraph"
	"github.com/clinvoc/termgraph/concept"
	"github.com/clinvoc/termgraph/query"
	"github.com/clinvoc/termgraph/sctid"
)

type server struct {
	term   *termgraph.Terminology
	apiKey string
}

func runServer(term *termgraph.Terminology, addr string) error {
	s := &server{
		term:   term,
		apiKey: os.Getenv("TERMGRAPH_API_KEY"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /concepts/{id}", s.handleConcept)
	mux.HandleFunc("GET /concepts/{id}/parents", s.handleHierarchy)
	mux.HandleFunc("GET /concepts/{id}/children", s.handleHierarchy)
	mux.HandleFunc("GET /concepts/{id}/ancestors", s.handleHierarchy)
	mux.HandleFunc("GET /concepts/{id}/descendants", s.handleHierarchy)
	mux.HandleFunc("POST /related", s.handleRelated)
	mux.HandleFunc("POST /attributes", s.handleAttributes)
	mux.HandleFunc("POST /attributes/has", s.handleHasAttributes)
	mux.HandleFunc("POST /simplify", s.handleSimplify)
	mux.HandleFunc("GET /closures", s.handleClosureList)
	mux.HandleFunc("POST /closures/{name}", s.handleClosureBuild)
	mux.HandleFunc("DELETE /closures/{name}", s.handleClosureDelete)

	// middleware chain: recovery -> cors -> auth -> logging
	handler := recoveryMiddleware(corsMiddleware(s.authMiddleware(logMiddleware(mux))))

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// --- request/response plumbing ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeQueryError maps engine sentinel errors onto HTTP statuses.
func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, termgraph.ErrConceptNotFound),
		errors.Is(err, termgraph.ErrClosureNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, termgraph.ErrUnknownEdgeTable),
		errors.Is(err, termgraph.ErrNoEdgeTables),
		errors.Is(err, termgraph.ErrNoRelationType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func pathConcept(w http.ResponseWriter, r *http.Request) (concept.ID, bool) {
	id, err := sctid.ParseConcept(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

func toSet(ids []concept.ID) concept.Set {
	s := concept.NewSet()
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// --- handlers ---

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.term.Store().ConceptCount(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "concepts": n})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	hits, err := s.term.SearchTerms(r.Context(), q)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

type conceptResponse struct {
	ConceptID concept.ID `json:"concept_id"`
	Term      string     `json:"term"`
	Tag       string     `json:"tag,omitempty"`
}

func (s *server) handleConcept(w http.ResponseWriter, r *http.Request) {
	id, ok := pathConcept(w, r)
	if !ok {
		return
	}
	term, err := s.term.PreferredTerm(r.Context(), id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	// A concept without a tagged FSN simply has no tag.
	tag, err := s.term.SemanticTag(r.Context(), id)
	if err != nil && !errors.Is(err, termgraph.ErrConceptNotFound) {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conceptResponse{ConceptID: id, Term: term, Tag: tag})
}

func (s *server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathConcept(w, r)
	if !ok {
		return
	}
	ids := concept.NewSet()
	ids.Add(id)

	var opts []query.Option
	if r.URL.Query().Get("include_self") == "true" {
		opts = append(opts, query.IncludeSelf())
	}
	if name := r.URL.Query().Get("closure"); name != "" {
		cl, err := s.term.LoadClosure(r.Context(), name)
		if err != nil {
			writeQueryError(w, err)
			return
		}
		opts = append(opts, query.UseClosure(cl))
	}

	var (
		result concept.Set
		err    error
		ctx    = r.Context()
	)
	switch {
	case strings.HasSuffix(r.URL.Path, "/parents"):
		result, err = s.term.Parents(ctx, ids, opts...)
	case strings.HasSuffix(r.URL.Path, "/children"):
		result, err = s.term.Children(ctx, ids, opts...)
	case strings.HasSuffix(r.URL.Path, "/ancestors"):
		result, err = s.term.Ancestors(ctx, ids, opts...)
	default:
		result, err = s.term.Descendants(ctx, ids, opts...)
	}
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Slice())
}

type relatedRequest struct {
	Concepts  []concept.ID `json:"concepts"`
	TypeID    concept.ID   `json:"type_id"`
	Reverse   bool         `json:"reverse"`
	Recursive bool         `json:"recursive"`
	Tables    []string     `json:"tables"`
	Inactive  bool         `json:"inactive"`
}

func (s *server) handleRelated(w http.ResponseWriter, r *http.Request) {
	var req relatedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	opts := []query.Option{query.On(req.Tables...)}
	if req.Reverse {
		opts = append(opts, query.Reverse())
	}
	if req.Recursive {
		opts = append(opts, query.Recursive())
	}
	if req.Inactive {
		opts = append(opts, query.IncludeInactive())
	}
	result, err := s.term.RelatedConcepts(r.Context(), toSet(req.Concepts), req.TypeID, opts...)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Slice())
}

type attributesRequest struct {
	Concepts []concept.ID `json:"concepts"`
}

func (s *server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	var req attributesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rows, err := s.term.ConceptAttributes(r.Context(), req.Concepts)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type hasAttributesRequest struct {
	Sources      []concept.ID `json:"sources"`
	Destinations []concept.ID `json:"destinations"`
	Types        []concept.ID `json:"types"`
}

func (s *server) handleHasAttributes(w http.ResponseWriter, r *http.Request) {
	var req hasAttributesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.term.HasAttributes(r.Context(), req.Sources, req.Destinations, req.Types)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type simplifyRequest struct {
	Concepts []concept.ID `json:"concepts"`
	Targets  []concept.ID `json:"targets"`
}

func (s *server) handleSimplify(w http.ResponseWriter, r *http.Request) {
	var req simplifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rows, err := s.term.Simplify(r.Context(), req.Concepts, toSet(req.Targets))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) handleClosureList(w http.ResponseWriter, r *http.Request) {
	names, err := s.term.Store().Closures(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

type closureBuildRequest struct {
	Subset []concept.ID `json:"subset"`
}

func (s *server) handleClosureBuild(w http.ResponseWriter, r *http.Request) {
	var req closureBuildRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := r.PathValue("name")
	cl, err := s.term.BuildClosure(r.Context(), toSet(req.Subset))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if err := s.term.SaveClosure(r.Context(), name, cl); err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"name": name, "rows": cl.Len()})
}

func (s *server) handleClosureDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.term.Store().DeleteClosure(r.Context(), r.PathValue("name")); err != nil {
		writeQueryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- middleware ---

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start).String(),
		)
	})
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("Authorization")
		key = strings.TrimPrefix(key, "Bearer ")
		if key != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered", "error", rec, "stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
