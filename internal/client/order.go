// Package client holds the thin HTTP clients for the surrounding
// microservices: orders (projection enrichment) and auth (token validation).
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/FacuPal/arq-microservicios/internal/apperr"
	"github.com/FacuPal/arq-microservicios/internal/delivery"
	"github.com/FacuPal/arq-microservicios/internal/metrics"
)

const clientTimeout = 10 * time.Second

// OrderServiceClient resolves order data from the order service with the
// caller's bearer token. Any transport or business error fails the whole
// rebuild, so everything surfaces as an internal error.
type OrderServiceClient struct {
	baseURL string
	http    *http.Client
}

func NewOrderServiceClient(baseURL string) *OrderServiceClient {
	return &OrderServiceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: clientTimeout},
	}
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, token, orderID string) (*delivery.OrderInfo, error) {
	started := time.Now()
	metrics.OrderLookupsTotal.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/orders/"+orderID, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "there was an error querying the order service", err)
	}
	req.Header.Set("Authorization", bearer(token))

	res, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "there was an error querying the order service", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, apperr.Internalf("there was an error querying the order service: status %d", res.StatusCode)
	}

	var order delivery.OrderInfo
	if err := json.NewDecoder(res.Body).Decode(&order); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "there was an error querying the order service", err)
	}

	metrics.OrderLookupDuration.Observe(time.Since(started).Seconds())
	return &order, nil
}

// bearer normalizes the Authorization header the way the auth service expects.
func bearer(token string) string {
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return "bearer " + token[len("bearer "):]
	}
	return fmt.Sprintf("bearer %s", token)
}
