package http

import (
	"encoding/json"
	"net/http"

	"github.com/aretw0/chatflow/pkg/chatbots"
	"github.com/moogar0880/problems"
)

const problemContentType = "application/problem+json"

func writeProblem(w http.ResponseWriter, status int, problem *problems.Problem) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, http.StatusBadRequest, problems.NewStatusProblem(http.StatusBadRequest).
		WithInstance(r.URL.Path).
		WithType("bad_request").
		WithDetail(detail))
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, http.StatusUnauthorized, problems.NewStatusProblem(http.StatusUnauthorized).
		WithInstance(r.URL.Path).
		WithType("unauthorized").
		WithDetail(detail))
}

// serviceError maps chatbot service errors to problem documents.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case chatbots.IsValidationError(err):
		badRequest(w, r, err.Error())

	case chatbots.IsNotFound(err):
		writeProblem(w, http.StatusNotFound, problems.NewStatusProblem(http.StatusNotFound).
			WithInstance(r.URL.Path).
			WithType("not_found").
			WithDetail(err.Error()))

	case chatbots.IsConflictError(err):
		writeProblem(w, http.StatusConflict, problems.NewStatusProblem(http.StatusConflict).
			WithInstance(r.URL.Path).
			WithType("conflict").
			WithDetail(err.Error()))

	default:
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeProblem(w, http.StatusInternalServerError, problems.NewStatusProblem(http.StatusInternalServerError).
			WithInstance(r.URL.Path).
			WithType("internal_error").
			WithDetail("internal error"))
	}
}
