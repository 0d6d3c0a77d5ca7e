package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/reshape/reshape-go/function"
	"github.com/reshape/reshape-go/specstore"
	"github.com/reshape/reshape-go/transform"
)

const maxRequestBytes = 10 * 1024 * 1024

type serverState struct {
	store specstore.Store

	mu     sync.RWMutex
	chains map[string]*transform.Chain
}

func newServerState(ctx context.Context, dir string, hotReload bool) (*serverState, error) {
	store, err := specstore.NewFSStore(dir)
	if err != nil {
		return nil, err
	}

	state := &serverState{
		store:  store,
		chains: map[string]*transform.Chain{},
	}

	if hotReload {
		changes, err := store.Watch(ctx)
		if err != nil {
			return nil, err
		}
		go func() {
			for name := range changes {
				state.invalidate(name)
				log.Printf("spec %s changed, recompiling on next use", name)
			}
		}()
	}

	return state, nil
}

func (s *serverState) invalidate(name string) {
	s.mu.Lock()
	delete(s.chains, name)
	s.mu.Unlock()
}

// chain returns the compiled chain for a spec name, compiling and caching on
// first use.
func (s *serverState) chain(ctx context.Context, name string) (*transform.Chain, error) {
	s.mu.RLock()
	chain, ok := s.chains[name]
	s.mu.RUnlock()
	if ok {
		return chain, nil
	}

	data, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	chain, err = specstore.CompileChain(data)
	if err != nil {
		return nil, fmt.Errorf("compiling spec %s: %w", name, err)
	}

	s.mu.Lock()
	s.chains[name] = chain
	s.mu.Unlock()
	return chain, nil
}

func serveHTTP(ctx context.Context, addr string, state *serverState) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", state.handleHealth)
	mux.HandleFunc("/api/functions", state.handleFunctions)
	mux.HandleFunc("/api/specs", state.handleSpecs)
	mux.HandleFunc("/api/specs/", state.handleSpec)
	mux.HandleFunc("/api/transform", state.handleTransform)
	mux.HandleFunc("/api/transform/", state.handleTransformNamed)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *serverState) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *serverState) handleFunctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, function.NewRegistry().Names())
}

func (s *serverState) handleSpecs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	names, err := s.store.List(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *serverState) handleSpec(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/specs/")
	if name == "" || strings.Contains(name, "/") {
		writeJSONError(w, http.StatusNotFound, "spec not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, err := s.store.Load(r.Context(), name)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)

	case http.MethodPut:
		writer, ok := s.store.(specstore.Writer)
		if !ok {
			writeJSONError(w, http.StatusMethodNotAllowed, "store is read-only")
			return
		}
		data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := specstore.CompileChain(data); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid spec: %v", err))
			return
		}
		if err := writer.Save(r.Context(), name, data); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.invalidate(name)
		writeJSON(w, http.StatusOK, map[string]string{"name": name, "status": "stored"})

	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type transformRequest struct {
	Chain json.RawMessage        `json:"chain"`
	Input map[string]interface{} `json:"input"`
}

// handleTransform applies an inline chain posted with the document.
func (s *serverState) handleTransform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req transformRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Chain) == 0 {
		writeJSONError(w, http.StatusBadRequest, "chain is required")
		return
	}
	if req.Input == nil {
		writeJSONError(w, http.StatusBadRequest, "input is required")
		return
	}

	chain, err := transform.ChainFromJSON(req.Chain)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid chain: %v", err))
		return
	}
	s.runChain(w, chain, req.Input)
}

// handleTransformNamed applies a stored spec to the posted document.
func (s *serverState) handleTransformNamed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/transform/")
	if name == "" || strings.Contains(name, "/") {
		writeJSONError(w, http.StatusNotFound, "spec not found")
		return
	}

	chain, err := s.chain(r.Context(), name)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	var input map[string]interface{}
	if err := decodeJSONBody(r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.runChain(w, chain, input)
}

func (s *serverState) runChain(w http.ResponseWriter, chain *transform.Chain, input map[string]interface{}) {
	result, err := chain.Transform(input)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeJSONBody(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writing response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
