package http

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aretw0/chatflow/pkg/chatbots"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/go-chi/chi/v5"
)

type renameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type modeRequest struct {
	Mode domain.Mode `json:"mode" validate:"required,oneof=active test inactive"`
}

type flowResponse struct {
	Chatbot  *domain.Chatbot `json:"chatbot"`
	Warnings []string        `json:"warnings"`
}

func (s *Server) routeAPI(r chi.Router) {
	r.Use(s.requireAdmin)

	r.Get("/accounts", s.listAccounts)
	r.Post("/accounts", s.connectAccount)
	r.Get("/accounts/{id}", s.getAccount)
	r.Get("/accounts/{id}/chatbots", s.listChatbots)

	r.Post("/chatbots", s.createChatbot)
	r.Route("/chatbots/{id}", func(r chi.Router) {
		r.Get("/", s.getChatbot)
		r.Patch("/", s.renameChatbot)
		r.Delete("/", s.deleteChatbot)
		r.Put("/flow", s.updateFlow)
		r.Put("/mode", s.setMode)
		r.Post("/activate", s.activate)
		r.Post("/deactivate", s.deactivate)
		r.Post("/regenerate-trigger", s.regenerateTrigger)
		r.Get("/testers", s.listTesters)
		r.Delete("/testers/{psid}", s.removeTester)
		if s.streams != nil {
			r.Get("/events", s.subscribeEvents)
		}
	})

	if s.cfg.Sessions != nil {
		r.Delete("/sessions/{accountID}/{userKey}", s.resetSession)
	}
}

// requireAdmin checks the bearer token when one is configured.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			unauthorized(w, r, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decode reads a JSON body into v and runs struct validation.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, r, "Invalid JSON format")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		badRequest(w, r, err.Error())
		return false
	}
	return true
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.bots.ListAccounts(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) connectAccount(w http.ResponseWriter, r *http.Request) {
	var req chatbots.ConnectRequest
	if !s.decode(w, r, &req) {
		return
	}
	account, err := s.bots.Connect(r.Context(), req)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.bots.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) listChatbots(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.bots.GetAccount(r.Context(), id); err != nil {
		s.serviceError(w, r, err)
		return
	}
	bots, err := s.bots.ListByAccount(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if bots == nil {
		bots = []*domain.Chatbot{}
	}
	writeJSON(w, http.StatusOK, bots)
}

func (s *Server) createChatbot(w http.ResponseWriter, r *http.Request) {
	var req chatbots.CreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	bot, err := s.bots.Create(r.Context(), req)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bot)
}

func (s *Server) getChatbot(w http.ResponseWriter, r *http.Request) {
	bot, err := s.bots.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) renameChatbot(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !s.decode(w, r, &req) {
		return
	}
	bot, err := s.bots.Rename(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) deleteChatbot(w http.ResponseWriter, r *http.Request) {
	if err := s.bots.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateFlow stores the graph as sent; lint findings are returned as warnings.
func (s *Server) updateFlow(w http.ResponseWriter, r *http.Request) {
	var flow domain.FlowGraph
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		badRequest(w, r, "Invalid flow document: "+err.Error())
		return
	}
	bot, report, err := s.bots.UpdateFlow(r.Context(), chi.URLParam(r, "id"), flow)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	warnings := make([]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		warnings = append(warnings, issue.String())
	}
	writeJSON(w, http.StatusOK, flowResponse{Chatbot: bot, Warnings: warnings})
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !s.decode(w, r, &req) {
		return
	}
	bot, err := s.bots.SetMode(r.Context(), chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	bot, err := s.bots.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) deactivate(w http.ResponseWriter, r *http.Request) {
	bot, err := s.bots.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) regenerateTrigger(w http.ResponseWriter, r *http.Request) {
	bot, err := s.bots.RegenerateTrigger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) listTesters(w http.ResponseWriter, r *http.Request) {
	testers, err := s.bots.ListTesters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, testers)
}

func (s *Server) removeTester(w http.ResponseWriter, r *http.Request) {
	if err := s.bots.RemoveTester(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "psid")); err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	err := s.cfg.Sessions.ResetSession(r.Context(), chi.URLParam(r, "userKey"), chi.URLParam(r, "accountID"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
