// Package tenantclient keeps one HTTP client per tenant instance.
package tenantclient

import (
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"school-controlplane/internal/metrics"
	"school-controlplane/internal/model"
)

const (
	// DefaultTimeout applies to every outbound call to a tenant instance.
	DefaultTimeout = 10 * time.Second

	// MaxResponseBytes caps the body read from a tenant instance.
	MaxResponseBytes = 1 << 20

	OriginHeader = "X-Control-Plane"
	OriginValue  = "super-admin"
)

// Minter produces a fresh instance token for one tenant.
type Minter interface {
	Mint(tenantID uuid.UUID) (string, error)
}

// Client is the cached handle for one tenant instance.
type Client struct {
	TenantID  uuid.UUID
	ServerURL string
	http      *resty.Client
}

// R starts a request against the tenant instance. A new instance token is
// minted for every request.
func (c *Client) R() *resty.Request {
	return c.http.R()
}

// Cache is a get-or-create map of tenant clients. The connection pool of a
// client is reused across calls; tokens are not.
type Cache struct {
	minter  Minter
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	clients map[uuid.UUID]*Client
}

func NewCache(minter Minter, timeout time.Duration, logger *zap.Logger) *Cache {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cache{
		minter:  minter,
		timeout: timeout,
		logger:  logger,
		clients: make(map[uuid.UUID]*Client),
	}
}

// Get returns the client for tenant, constructing it on first use.
// The check-and-insert runs under the lock so concurrent first calls
// never build two clients for one tenant.
func (c *Cache) Get(tenant *model.Tenant) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.clients[tenant.ID]; ok {
		if cl.ServerURL == tenant.ServerURL {
			return cl
		}
		// the tenant moved; never keep talking to the old address
		cl.http.GetClient().CloseIdleConnections()
	}

	cl := c.newClient(tenant.ID, tenant.ServerURL)
	c.clients[tenant.ID] = cl
	metrics.TenantClients.Set(float64(len(c.clients)))
	c.logger.Debug("tenant client created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("server_url", tenant.ServerURL),
	)
	return cl
}

// Forget drops the cached client of a tenant, e.g. after its address changed.
func (c *Cache) Forget(tenantID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.clients[tenantID]; ok {
		cl.http.GetClient().CloseIdleConnections()
		delete(c.clients, tenantID)
		metrics.TenantClients.Set(float64(len(c.clients)))
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func (c *Cache) newClient(tenantID uuid.UUID, serverURL string) *Client {
	hc := resty.New().
		SetBaseURL(serverURL).
		SetTimeout(c.timeout).
		SetResponseBodyLimit(MaxResponseBytes).
		SetHeader(OriginHeader, OriginValue).
		SetHeader("Accept", "application/json")

	hc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		token, err := c.minter.Mint(tenantID)
		if err != nil {
			return err
		}
		req.SetAuthToken(token)
		return nil
	})

	return &Client{TenantID: tenantID, ServerURL: serverURL, http: hc}
}
