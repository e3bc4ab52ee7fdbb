package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/cascade/pkg/less/compiler"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// requestFile names request bodies in error positions. Relative imports
// resolve against the working directory of the server.
const requestFile = "request.yaml"

type compileResponse struct {
	CSS        string   `json:"css"`
	Imports    []string `json:"imports,omitempty"`
	RenderID   string   `json:"render_id"`
	DurationMS float64  `json:"duration_ms"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Context    string `json:"context,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// compileHandler renders a YAML tree document sent as the request body.
//
// Variables are passed as repeated "var" query parameters of the form
// name=value and override the variables of the document. The response is
// text/css unless the client asks for JSON with an Accept header or
// format=json.
//
// Returns:
//   - 200 OK: the rendered stylesheet
//   - 400 Bad Request: empty body or malformed variables
//   - 413 Request Entity Too Large: body over the configured limit
//   - 422 Unprocessable Entity: the document does not compile
//   - 504 Gateway Timeout: the render exceeded the compile timeout
func (s *Server) compileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, errorBody{Type: "request", Message: "method not allowed"})
			return
		}

		if s.config.MaxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, errorBody{
					Type:    "request",
					Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				})
				return
			}
			writeError(w, http.StatusBadRequest, errorBody{Type: "request", Message: "failed to read request body"})
			return
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			writeError(w, http.StatusBadRequest, errorBody{Type: "request", Message: "request body is empty"})
			return
		}

		vars, err := parseQueryVars(r.URL.Query()["var"])
		if err != nil {
			writeError(w, http.StatusBadRequest, errorBody{Type: "request", Message: err.Error()})
			return
		}

		comp := s.opts.Compiler
		tree, err := comp.ParseBytes(body, requestFile)
		if err != nil {
			s.writeCompileError(r.Context(), w, err)
			return
		}
		res, err := comp.Render(r.Context(), tree, vars)
		if err != nil {
			s.writeCompileError(r.Context(), w, err)
			return
		}

		w.Header().Set("X-Render-ID", res.RenderID)
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, compileResponse{
				CSS:        res.CSS,
				Imports:    res.Imports,
				RenderID:   res.RenderID,
				DurationMS: float64(res.Duration.Microseconds()) / 1000,
			})
			return
		}
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, res.CSS)
	}
}

// parseQueryVars parses name=value pairs.
func parseQueryVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || name == "@" {
			return nil, fmt.Errorf("malformed variable %q, want name=value", p)
		}
		vars[name] = value
	}
	return vars, nil
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (s *Server) writeCompileError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		timeout  *compiler.TimeoutError
		variable *compiler.VariableError
		ce       *lesserrors.Error
	)
	switch {
	case errors.As(err, &timeout):
		writeError(w, http.StatusGatewayTimeout, errorBody{Type: "timeout", Message: timeout.Error()})
	case errors.As(err, &variable):
		writeError(w, http.StatusBadRequest, errorBody{Type: "variable", Message: variable.Error()})
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads the response.
		w.WriteHeader(http.StatusServiceUnavailable)
	case lesserrors.As(err, &ce):
		writeError(w, http.StatusUnprocessableEntity, errorBody{
			Type:       string(ce.Type),
			Message:    ce.Message,
			File:       ce.Location.File,
			Line:       ce.Location.Line,
			Column:     ce.Location.Column,
			Context:    ce.Context,
			Suggestion: ce.Suggestion,
		})
	default:
		s.logger.ErrorContext(ctx, "compile failed", "error", err)
		writeError(w, http.StatusInternalServerError, errorBody{Type: "internal", Message: "compilation failed"})
	}
}

func writeError(w http.ResponseWriter, code int, body errorBody) {
	writeJSON(w, code, errorResponse{Error: body})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
