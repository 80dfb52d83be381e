package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymcoding/invoice-web/internal/auth"
	"github.com/gymcoding/invoice-web/invoice"
	"github.com/gymcoding/invoice-web/query"
)

const password = "correct-horse"

type fakeInvoices struct {
	listSort     query.SortField
	listPageSize int
	listCursor   string
	filters      query.Filters
	tags         []string
	ids          []string
	listErr      error
}

func (f *fakeInvoices) List(_ context.Context, pageSize int, cursor string, sort query.SortField) (query.Page, error) {
	f.listPageSize, f.listCursor, f.listSort = pageSize, cursor, sort
	if f.listErr != nil {
		return query.Page{}, f.listErr
	}
	next := "c2"
	return query.Page{Records: []invoice.Invoice{{ID: "inv-1"}}, NextCursor: &next, HasMore: true}, nil
}

func (f *fakeInvoices) Search(_ context.Context, filters query.Filters, _ int, _ string) (query.Page, error) {
	f.filters = filters
	if err := filters.Normalize().Validate(); err != nil {
		return query.Page{}, err
	}
	return query.Page{Records: []invoice.Invoice{}}, nil
}

func (f *fakeInvoices) InvalidateTag(_ context.Context, tag string) error {
	f.tags = append(f.tags, tag)
	return nil
}

func (f *fakeInvoices) Invalidate(_ context.Context, id string) error {
	f.ids = append(f.ids, id)
	return nil
}

func setup(t *testing.T) (*fakeInvoices, http.Handler, *http.Cookie) {
	t.Helper()

	invoices := &fakeInvoices{}
	sessions := auth.NewSessions(password, "0123456789abcdef0123456789abcdef")
	h := NewHandler(invoices, sessions, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Route("/api/admin", h.Routes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"password":"`+password+`"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	return invoices, r, cookies[0]
}

func do(h http.Handler, method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLogin_WrongPassword(t *testing.T) {
	_, h, _ := setup(t)

	rec := do(h, http.MethodPost, "/api/admin/login", `{"password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = do(h, http.MethodPost, "/api/admin/login", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutesRequireSession(t *testing.T) {
	_, h, _ := setup(t)

	for _, target := range []string{"/api/admin/invoices", "/api/admin/invoices/search"} {
		rec := do(h, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
	rec := do(h, http.MethodPost, "/api/admin/cache/invalidate", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestList(t *testing.T) {
	invoices, h, cookie := setup(t)

	rec := do(h, http.MethodGet, "/api/admin/invoices?page_size=5&cursor=c1&sort=total_amount", "", cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"inv-1"`)
	assert.Contains(t, rec.Body.String(), `"nextCursor":"c2"`)
	assert.Contains(t, rec.Body.String(), `"hasMore":true`)
	assert.Equal(t, 5, invoices.listPageSize)
	assert.Equal(t, "c1", invoices.listCursor)
	assert.Equal(t, query.SortTotalAmount, invoices.listSort)
}

func TestList_BadParams(t *testing.T) {
	_, h, cookie := setup(t)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/admin/invoices?sort=client", "", cookie).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/admin/invoices?page_size=ten", "", cookie).Code)
}

func TestList_FailureUsesFixedMessage(t *testing.T) {
	invoices, h, cookie := setup(t)
	invoices.listErr = &query.Failure{Op: "list", Message: query.MsgListFailed, Err: errors.New("dial tcp: refused")}

	rec := do(h, http.MethodGet, "/api/admin/invoices", "", cookie)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), query.MsgListFailed)
	assert.NotContains(t, rec.Body.String(), "refused")
}

func TestSearch(t *testing.T) {
	invoices, h, cookie := setup(t)

	rec := do(h, http.MethodGet, "/api/admin/invoices/search?q=acme&status=approved&date_from=2025-01-01&date_to=2025-12-31", "", cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"records":[],"nextCursor":null,"hasMore":false}`, rec.Body.String())
	assert.Equal(t, query.Filters{Query: "acme", Status: "approved", DateFrom: "2025-01-01", DateTo: "2025-12-31"}, invoices.filters)
}

func TestSearch_InvalidFilters(t *testing.T) {
	_, h, cookie := setup(t)

	rec := do(h, http.MethodGet, "/api/admin/invoices/search?status=paid", "", cookie)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidate(t *testing.T) {
	invoices, h, cookie := setup(t)

	rec := do(h, http.MethodPost, "/api/admin/cache/invalidate", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodPost, "/api/admin/cache/invalidate", `{"tag":"client:acme"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"invalidated":"client:acme"}`, rec.Body.String())

	assert.Equal(t, []string{"invoice", "client:acme"}, invoices.tags)
}

func TestInvalidate_ByID(t *testing.T) {
	invoices, h, cookie := setup(t)

	rec := do(h, http.MethodPost, "/api/admin/cache/invalidate", `{"id":" inv-1 "}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"invalidatedId":"inv-1"}`, rec.Body.String())

	assert.Equal(t, []string{"inv-1"}, invoices.ids)
	assert.Empty(t, invoices.tags)
}

func TestLogout(t *testing.T) {
	_, h, cookie := setup(t)

	rec := do(h, http.MethodPost, "/api/admin/logout", "", cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
}
