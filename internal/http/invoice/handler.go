package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"

	"github.com/gymcoding/invoice-web/document"
	"github.com/gymcoding/invoice-web/internal/http/respond"
	"github.com/gymcoding/invoice-web/invoice"
)

const (
	msgPDFUnavailable = "PDF 생성 기능이 설정되지 않았습니다."
	msgPDFFailed      = "PDF 생성 중 오류가 발생했습니다."
)

// Getter loads a single invoice.
type Getter interface {
	GetByID(ctx context.Context, id string) (invoice.Invoice, error)
}

type Handler struct {
	invoices Getter
	renderer document.Renderer
	logger   *slog.Logger
}

// NewHandler creates the public invoice handler. renderer may be nil, in
// which case document downloads answer 501.
func NewHandler(invoices Getter, renderer document.Renderer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{invoices: invoices, renderer: renderer, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}", h.get)
	r.Get("/{id}/pdf", h.pdf)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Err(w, r, h.logger, err)
		return
	}

	body, err := json.Marshal(inv)
	if err != nil {
		respond.Err(w, r, h.logger, fmt.Errorf("encode invoice %s: %w", inv.ID, err))
		return
	}
	etag := `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=0, must-revalidate")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		respond.Error(w, http.StatusNotImplemented, msgPDFUnavailable)
		return
	}

	inv, err := h.invoices.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Err(w, r, h.logger, err)
		return
	}
	if err := document.Validate(inv); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.MsgInvalidData)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(r.Context(), &buf, inv); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, document.ErrInvalidInvoice) {
			status = http.StatusBadRequest
		}
		h.logger.ErrorContext(r.Context(), "document render failed",
			slog.String("invoice_id", inv.ID),
			slog.Any("error", err),
		)
		respond.Error(w, status, msgPDFFailed)
		return
	}

	w.Header().Set("Content-Type", h.renderer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, document.Filename(inv.InvoiceNumber)))
	w.Header().Set("Cache-Control", "public, max-age=0")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
