package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"order_form/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, srv *httptest.Server) BackendClient {
	t.Helper()
	c, err := NewBackendHTTPClient(Options{
		BaseURL:  srv.URL,
		PagePath: "/orders/add-order/",
		Timeout:  2 * time.Second,
	}, quietLogger())
	require.NoError(t, err)
	return c
}

func TestNewBackendHTTPClientRequiresAddOrderPage(t *testing.T) {
	_, err := NewBackendHTTPClient(Options{BaseURL: "http://localhost:8000", PagePath: "/orders/"}, quietLogger())
	assert.ErrorIs(t, err, domain.ErrInactivePage)

	_, err = NewBackendHTTPClient(Options{BaseURL: "not a url", PagePath: "/orders/add-order/"}, quietLogger())
	assert.Error(t, err)
}

func TestListCatalog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(ProductsPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Arepa"},{"id":2,"name":"Empanada"}]`))
	})
	mux.HandleFunc(CustomersPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":3,"name":"Ana"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv)

	products, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.ID{"1", "2"}, []domain.ID{products[0].ID, products[1].ID})

	customers, err := c.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Ana", customers[0].Name)
}

func TestListCatalogNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	products, err := c.ListProducts(context.Background())
	assert.Nil(t, products)
	var loadErr *domain.CatalogLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "products", loadErr.Resource)
	assert.Equal(t, http.StatusForbidden, loadErr.StatusCode)
	assert.Equal(t, "Forbidden", loadErr.StatusText)
}

func TestListCatalogTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.ListCustomers(context.Background())
	var loadErr *domain.CatalogLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "customers", loadErr.Resource)
	assert.NotNil(t, loadErr.Unwrap())
}

func TestListCatalogMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).ListProducts(context.Background())
	var loadErr *domain.CatalogLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestGetProductPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/api/7/":
			_, _ = w.Write([]byte(`{"price":"12.50"}`))
		case "/products/api/8/":
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	price, err := c.GetProductPrice(context.Background(), "7")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("12.5")))

	var priceErr *domain.PriceLoadError
	_, err = c.GetProductPrice(context.Background(), "8")
	require.ErrorAs(t, err, &priceErr)
	assert.Equal(t, domain.ID("8"), priceErr.ProductID)

	_, err = c.GetProductPrice(context.Background(), "99")
	assert.ErrorAs(t, err, &priceErr)
}

func TestBootstrapAndCreateOrderSendCSRFToken(t *testing.T) {
	var (
		gotToken   string
		gotType    string
		gotReferer string
		gotDraft   domain.OrderDraft
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/add-order/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok123", Path: "/"})
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc(OrdersPath, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-CSRFToken")
		gotType = r.Header.Get("Content-Type")
		gotReferer = r.Header.Get("Referer")
		_ = json.NewDecoder(r.Body).Decode(&gotDraft)
		_, _ = w.Write([]byte(`{"status":"success","message":"Order created successfully"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv)

	require.NoError(t, c.Bootstrap(context.Background()))
	draft := domain.OrderDraft{Customer: "3", Items: []domain.DraftItem{{Product: "1", Quantity: "2"}}}
	reply, err := c.CreateOrder(context.Background(), draft)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, reply.Status)
	assert.Equal(t, "tok123", gotToken)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, srv.URL+"/orders/add-order/", gotReferer)
	assert.Equal(t, draft, gotDraft)
}

func TestCreateOrderReloadsPageWhenTokenMissing(t *testing.T) {
	var (
		pageCalls atomic.Int32
		mu        sync.Mutex
		tokens    []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/add-order/", func(w http.ResponseWriter, r *http.Request) {
		if pageCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "fresh", Path: "/"})
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc(OrdersPath, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		tokens = append(tokens, r.Header.Get("X-CSRFToken"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"status":"success","message":"ok"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	require.Error(t, c.Bootstrap(context.Background()))

	for i := 0; i < 3; i++ {
		_, err := c.CreateOrder(context.Background(), domain.OrderDraft{Customer: "3"})
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"fresh", "fresh", "fresh"}, tokens)
	assert.EqualValues(t, 2, pageCalls.Load())
}

func TestBootstrapFailsOnErrorPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, newTestClient(t, srv).Bootstrap(context.Background()))
}

func TestCreateOrderReturnsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"Product out of stock"}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv).CreateOrder(context.Background(), domain.OrderDraft{Customer: "1"})
	require.NoError(t, err)
	assert.Equal(t, "error", reply.Status)
	assert.Equal(t, "Product out of stock", reply.Message)
}

func TestCreateOrderTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("CSRF verification failed"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).CreateOrder(context.Background(), domain.OrderDraft{Customer: "1"})
	var transportErr *domain.SubmissionTransportError
	require.ErrorAs(t, err, &transportErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestClient(t, srv).CreateOrder(ctx, domain.OrderDraft{Customer: "1"})
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, errors.Is(err, context.Canceled))
}
