package ordersource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/platform/obs"
	"sameday-dispatch-service/internal/ports"
)

const (
	requestTimeout = 15 * time.Second
	cacheTTL       = 5 * time.Minute
)

// OMSClient fetches orders from the external order-management system.
//
// Results are cached in Redis per date with a short TTL, and concurrent
// fetches for the same date collapse into one upstream call through a
// singleflight group: waiters share the in-flight result instead of
// issuing duplicate requests.
type OMSClient struct {
	session *http.Client
	baseURL string
	apiKey  string
	source  string
	cache   *redis.Client
	group   singleflight.Group
}

func NewOMSClient(baseURL, apiKey string, cache *redis.Client) (*OMSClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("OMS base URL is empty")
	}
	return &OMSClient{
		session: &http.Client{Timeout: requestTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		source:  "oms",
		cache:   cache,
	}, nil
}

func (c *OMSClient) Name() string { return c.source }

// rawOrderDoc is the order document shape the OMS returns.
type rawOrderDoc struct {
	ID               string `json:"id"`
	RequiresDelivery bool   `json:"requires_delivery"`
	ScheduledDate    string `json:"scheduled_date"`
	Status           string `json:"status"`
	CustomerName     string `json:"customer_name"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	Items            string `json:"items"`
	Category         string `json:"category"`
}

type ordersResponse struct {
	Orders []json.RawMessage `json:"orders"`
}

// FetchOrders returns the source's orders for the date. force bypasses
// the cached result but still shares any fetch already in flight.
func (c *OMSClient) FetchOrders(ctx context.Context, date string, force bool) (_ []ports.RawOrder, err error) {
	defer obs.Time(ctx, "oms.FetchOrders")(&err)

	key := "oms:orders:" + date

	if !force {
		if cached, ok := c.fromCache(ctx, key); ok {
			return cached, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		orders, err := c.fetch(ctx, date)
		if err != nil {
			return nil, err
		}
		c.toCache(ctx, key, orders)
		return orders, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ports.RawOrder), nil
}

func (c *OMSClient) fetch(ctx context.Context, date string) ([]ports.RawOrder, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders", nil)
	if err != nil {
		return nil, fmt.Errorf("create orders request: %w", err)
	}
	q := req.URL.Query()
	q.Set("date", date)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.session.Do(req)
	if err != nil {
		return nil, domain.CollaboratorErr("fetch orders", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.CollaboratorErr("order source rate limited", nil)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, domain.CollaboratorErr(
			fmt.Sprintf("order source returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b))), nil)
	}

	var decoded ordersResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.CollaboratorErr("decode orders response", err)
	}

	orders := make([]ports.RawOrder, 0, len(decoded.Orders))
	for _, raw := range decoded.Orders {
		var doc rawOrderDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Printf("oms: skipping malformed order document: %v", err)
			continue
		}
		orders = append(orders, ports.RawOrder{
			Ref:              doc.ID,
			RequiresDelivery: doc.RequiresDelivery,
			ScheduledDate:    doc.ScheduledDate,
			Status:           doc.Status,
			CustomerName:     doc.CustomerName,
			Phone:            doc.Phone,
			Address:          doc.Address,
			Items:            doc.Items,
			Category:         doc.Category,
			Payload:          raw,
		})
	}
	return orders, nil
}

// fromCache returns the cached order list for the key, if present.
// Cache failures degrade to an upstream fetch, never to an error.
func (c *OMSClient) fromCache(ctx context.Context, key string) ([]ports.RawOrder, bool) {
	if c.cache == nil {
		return nil, false
	}

	data, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("oms: cache read failed key=%s: %v", key, err)
		}
		return nil, false
	}

	var orders []ports.RawOrder
	if err := json.Unmarshal(data, &orders); err != nil {
		log.Printf("oms: cache entry corrupt key=%s: %v", key, err)
		return nil, false
	}
	return orders, true
}

func (c *OMSClient) toCache(ctx context.Context, key string, orders []ports.RawOrder) {
	if c.cache == nil {
		return
	}

	data, err := json.Marshal(orders)
	if err != nil {
		log.Printf("oms: cache marshal failed key=%s: %v", key, err)
		return
	}
	if err := c.cache.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		log.Printf("oms: cache write failed key=%s: %v", key, err)
	}
}
