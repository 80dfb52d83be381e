package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gymcoding/invoice-web/cache"
	"github.com/gymcoding/invoice-web/internal/auth"
	"github.com/gymcoding/invoice-web/internal/http/respond"
	"github.com/gymcoding/invoice-web/query"
)

const msgInvalidPassword = "비밀번호가 올바르지 않습니다."

// Invoices is the admin view of the invoice repository.
type Invoices interface {
	List(ctx context.Context, pageSize int, cursor string, sort query.SortField) (query.Page, error)
	Search(ctx context.Context, filters query.Filters, pageSize int, cursor string) (query.Page, error)
	InvalidateTag(ctx context.Context, tag string) error
	Invalidate(ctx context.Context, id string) error
}

type Handler struct {
	invoices Invoices
	sessions *auth.Sessions
	logger   *slog.Logger
}

func NewHandler(invoices Invoices, sessions *auth.Sessions, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{invoices: invoices, sessions: sessions, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.Require)
		r.Get("/invoices", h.list)
		r.Get("/invoices/search", h.search)
		r.Post("/cache/invalidate", h.invalidate)
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.MsgInvalidRequest)
		return
	}

	if err := h.sessions.Login(w, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			h.logger.WarnContext(r.Context(), "admin login rejected")
			respond.Error(w, http.StatusUnauthorized, msgInvalidPassword)
			return
		}
		respond.Err(w, r, h.logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	h.sessions.Logout(w)
	respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sort, err := query.ParseSortField(q.Get("sort"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, ok := parsePageSize(q.Get("page_size"))
	if !ok {
		respond.Error(w, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	page, err := h.invoices.List(r.Context(), pageSize, q.Get("cursor"), sort)
	if err != nil {
		respond.Err(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, page)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pageSize, ok := parsePageSize(q.Get("page_size"))
	if !ok {
		respond.Error(w, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	filters := query.Filters{
		Query:    q.Get("q"),
		Status:   q.Get("status"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
	}

	page, err := h.invoices.Search(r.Context(), filters, pageSize, q.Get("cursor"))
	if err != nil {
		respond.Err(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, page)
}

// invalidateRequest drops one invoice when ID is set, otherwise every entry
// carrying Tag.
type invalidateRequest struct {
	Tag string `json:"tag"`
	ID  string `json:"id"`
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, http.StatusBadRequest, respond.MsgInvalidRequest)
			return
		}
	}

	if id := strings.TrimSpace(req.ID); id != "" {
		if err := h.invoices.Invalidate(r.Context(), id); err != nil {
			respond.Err(w, r, h.logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"invalidatedId": id})
		return
	}

	if req.Tag == "" {
		req.Tag = cache.DefaultTag
	}

	if err := h.invoices.InvalidateTag(r.Context(), req.Tag); err != nil {
		respond.Err(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"invalidated": req.Tag})
}

// An empty page size selects the engine default.
func parsePageSize(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
