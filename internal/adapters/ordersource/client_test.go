package ordersource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"sameday-dispatch-service/internal/domain"
)

const ordersBody = `{"orders":[
	{"id":"1001","requires_delivery":true,"scheduled_date":"2026-03-21","status":"pending",
	 "customer_name":"Dana Reyes","phone":"555-0101","address":"12 Oak Ave","items":"2x widget","category":"electronics"},
	{"id":"1002","requires_delivery":false,"customer_name":"Sam Ortiz","address":"9 Pine Rd"}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OMSClient, *int64) {
	t.Helper()

	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	client, err := NewOMSClient(srv.URL, "test-key", rdb)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, &hits
}

func TestFetchOrdersParsesAndCaches(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") != "2026-03-20" {
			t.Errorf("date query = %q", r.URL.Query().Get("date"))
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(ordersBody))
	})
	ctx := context.Background()

	orders, err := client.FetchOrders(ctx, "2026-03-20", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders = %d, want 2", len(orders))
	}

	first := orders[0]
	if first.Ref != "1001" || !first.RequiresDelivery {
		t.Errorf("first order = %+v", first)
	}
	if first.ScheduledDate != "2026-03-21" || first.Category != "electronics" {
		t.Errorf("first order fields = %+v", first)
	}
	if len(first.Payload) == 0 {
		t.Error("raw payload must carry the source document")
	}
	if orders[1].RequiresDelivery {
		t.Error("second order must not require delivery")
	}

	// Second call is served from the cache.
	if _, err := client.FetchOrders(ctx, "2026-03-20", false); err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if got := atomic.LoadInt64(hits); got != 1 {
		t.Fatalf("upstream hits = %d, want 1", got)
	}

	// force bypasses the cache.
	if _, err := client.FetchOrders(ctx, "2026-03-20", true); err != nil {
		t.Fatalf("forced fetch: %v", err)
	}
	if got := atomic.LoadInt64(hits); got != 2 {
		t.Fatalf("upstream hits after force = %d, want 2", got)
	}
}

func TestFetchOrdersRateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchOrders(context.Background(), "2026-03-20", false)
	if domain.KindOf(err) != domain.KindCollaborator {
		t.Fatalf("error kind = %v, want collaborator", domain.KindOf(err))
	}
}

func TestFetchOrdersSkipsMalformedDocuments(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orders":[{"id":"2001","requires_delivery":true,"address":"1 Elm"},42]}`))
	})

	orders, err := client.FetchOrders(context.Background(), "2026-03-20", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].Ref != "2001" {
		t.Fatalf("orders = %+v, want just 2001", orders)
	}
}
