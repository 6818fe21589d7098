package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fenwicklabs/pagesched/pkg/httpfetch/cache"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush test db: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestNew_ValidatesConfig(t *testing.T) {
	redisClient := setupTestRedis(t)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "missing redis", cfg: Config{UserAgent: "test/1.0", RespectExpires: true, ErrorThreshold: 10}, wantErr: true},
		{name: "missing user agent", cfg: Config{Redis: redisClient, RespectExpires: true, ErrorThreshold: 10}, wantErr: true},
		{name: "respect expires must be true", cfg: Config{Redis: redisClient, UserAgent: "test/1.0", RespectExpires: false, ErrorThreshold: 10}, wantErr: true},
		{name: "threshold too low", cfg: Config{Redis: redisClient, UserAgent: "test/1.0", RespectExpires: true, ErrorThreshold: 1}, wantErr: true},
		{name: "valid config", cfg: Config{Redis: redisClient, UserAgent: "test/1.0", RespectExpires: true, ErrorThreshold: 10}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_Get_CachesSuccessfulResponse(t *testing.T) {
	redisClient := setupTestRedis(t)

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Expires", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))
		w.Header().Set("ETag", `"v1"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"items":[1,2,3]}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "pagesched-test/1.0")
	cfg.BaseURL = server.URL
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	resp, err := client.Get(ctx, "/v1/items/")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}

	entry, err := client.Cache().Get(ctx, cache.Key{Endpoint: "/v1/items/"})
	if err != nil {
		t.Fatalf("cache Get() error = %v", err)
	}
	if entry.ETag != `"v1"` {
		t.Errorf("cached ETag = %q, want %q", entry.ETag, `"v1"`)
	}
}

func TestClient_Get_ClientErrorIsNotRetried(t *testing.T) {
	redisClient := setupTestRedis(t)

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "pagesched-test/1.0")
	cfg.BaseURL = server.URL
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := client.Get(context.Background(), "/v1/missing/")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1 (client errors must not be retried)", hits)
	}
}
