package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"order_form/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	ProductsPath  = "/products/api/"
	CustomersPath = "/customers/api/"
	OrdersPath    = "/orders/api/add-order/"

	pageSuffix = "add-order/"
)

type BackendClient interface {
	Bootstrap(ctx context.Context) error
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetProductPrice(ctx context.Context, productID domain.ID) (decimal.Decimal, error)
	CreateOrder(ctx context.Context, draft domain.OrderDraft) (*domain.SubmitReply, error)
}

type Options struct {
	BaseURL        string
	PagePath       string
	SessionID      string
	CSRFCookieName string
	Timeout        time.Duration
}

type backendHTTPClient struct {
	baseURL    *url.URL
	pageURL    *url.URL
	csrfCookie string
	client     *http.Client
	log        *logrus.Logger
}

func NewBackendHTTPClient(opts Options, logger *logrus.Logger) (BackendClient, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", opts.BaseURL)
	}
	if !strings.HasSuffix(opts.PagePath, pageSuffix) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInactivePage, opts.PagePath)
	}
	page := base.ResolveReference(&url.URL{Path: opts.PagePath})

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if opts.SessionID != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: "sessionid", Value: opts.SessionID, Path: "/"}})
	}
	csrf := opts.CSRFCookieName
	if csrf == "" {
		csrf = "csrftoken"
	}

	return &backendHTTPClient{
		baseURL:    base,
		pageURL:    page,
		csrfCookie: csrf,
		client: &http.Client{
			Timeout: opts.Timeout,
			Jar:     jar,
		},
		log: logger,
	}, nil
}

func (c *backendHTTPClient) endpoint(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

// Bootstrap loads the add-order page so the jar holds the CSRF cookie.
func (c *backendHTTPClient) Bootstrap(ctx context.Context) error {
	c.log.Infof("BackendClient: Loading order page %s", c.pageURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create page request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("BackendClient: Failed to load order page: %v", err)
		return fmt.Errorf("failed to communicate with backend: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.log.Errorf("BackendClient: Order page returned status %d", resp.StatusCode)
		return fmt.Errorf("order page returned status %d", resp.StatusCode)
	}
	if c.csrfToken() == "" {
		c.log.Warnf("BackendClient: No %s cookie set by order page", c.csrfCookie)
	}
	return nil
}

func (c *backendHTTPClient) csrfToken() string {
	for _, ck := range c.client.Jar.Cookies(c.baseURL) {
		if ck.Name == c.csrfCookie {
			if v, err := url.PathUnescape(ck.Value); err == nil {
				return v
			}
			return ck.Value
		}
	}
	return ""
}

func (c *backendHTTPClient) getCatalog(ctx context.Context, resource, path string, out interface{}) error {
	target := c.endpoint(path)
	c.log.Infof("BackendClient: Requesting %s from URL: %s", resource, target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &domain.CatalogLoadError{Resource: resource, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("BackendClient: Failed to execute %s request: %v", resource, err)
		return &domain.CatalogLoadError{Resource: resource, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Errorf("BackendClient: %s request failed with status %d", resource, resp.StatusCode)
		return &domain.CatalogLoadError{
			Resource:   resource,
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Errorf("BackendClient: Failed to decode %s response: %v", resource, err)
		return &domain.CatalogLoadError{Resource: resource, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *backendHTTPClient) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getCatalog(ctx, "products", ProductsPath, &products); err != nil {
		return nil, err
	}
	c.log.Infof("BackendClient: Loaded %d products", len(products))
	return products, nil
}

func (c *backendHTTPClient) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var customers []domain.Customer
	if err := c.getCatalog(ctx, "customers", CustomersPath, &customers); err != nil {
		return nil, err
	}
	c.log.Infof("BackendClient: Loaded %d customers", len(customers))
	return customers, nil
}

func (c *backendHTTPClient) GetProductPrice(ctx context.Context, productID domain.ID) (decimal.Decimal, error) {
	target := c.endpoint(ProductsPath + url.PathEscape(productID.String()) + "/")
	c.log.Debugf("BackendClient: Requesting price for product %s from URL: %s", productID, target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return decimal.Zero, &domain.PriceLoadError{ProductID: productID, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, &domain.PriceLoadError{ProductID: productID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, &domain.PriceLoadError{ProductID: productID, Err: fmt.Errorf("product not found")}
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &domain.PriceLoadError{ProductID: productID, Err: fmt.Errorf("backend returned status %d", resp.StatusCode)}
	}

	var body struct {
		Price *decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, &domain.PriceLoadError{ProductID: productID, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if body.Price == nil {
		return decimal.Zero, &domain.PriceLoadError{ProductID: productID, Err: fmt.Errorf("response has no price")}
	}
	return *body.Price, nil
}

// CreateOrder posts the draft. Any decoded reply is returned, whatever its
// status field says; only transport and decoding problems are errors.
func (c *backendHTTPClient) CreateOrder(ctx context.Context, draft domain.OrderDraft) (*domain.SubmitReply, error) {
	if c.csrfToken() == "" {
		if err := c.Bootstrap(ctx); err != nil {
			c.log.Warnf("BackendClient: Could not obtain CSRF token before submitting: %v", err)
		}
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, &domain.SubmissionTransportError{Err: fmt.Errorf("failed to prepare order data: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(OrdersPath), bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.SubmissionTransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRFToken", c.csrfToken())
	req.Header.Set("Referer", c.pageURL.String())

	c.log.Infof("BackendClient: Submitting order for customer %s with %d items", draft.Customer, len(draft.Items))
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("BackendClient: Failed to execute order request: %v", err)
		return nil, &domain.SubmissionTransportError{Err: err}
	}
	defer resp.Body.Close()

	var reply domain.SubmitReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		c.log.Errorf("BackendClient: Failed to decode order response (status %d): %v", resp.StatusCode, err)
		return nil, &domain.SubmissionTransportError{Err: fmt.Errorf("failed to decode response with status %d: %w", resp.StatusCode, err)}
	}
	return &reply, nil
}
