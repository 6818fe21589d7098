package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis instance for testing, skipping
// the test if none is reachable. Real end-to-end coverage against a
// containerized Redis lives in tests/integration.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

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

func TestManager_SetGet_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	m := NewManager(client)
	ctx := context.Background()

	key := Key{Endpoint: "/v1/accounts/"}
	entry := &Entry{
		Data:       []byte(`{"id":1}`),
		ETag:       `"abc"`,
		Expires:    time.Now().Add(time.Minute),
		StatusCode: 200,
	}

	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Data) != string(entry.Data) {
		t.Errorf("Data = %s, want %s", got.Data, entry.Data)
	}
	if got.ETag != entry.ETag {
		t.Errorf("ETag = %s, want %s", got.ETag, entry.ETag)
	}
}

func TestManager_Get_MissReturnsErrCacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	m := NewManager(client)
	ctx := context.Background()

	_, err := m.Get(ctx, Key{Endpoint: "/nonexistent/"})
	if err != ErrCacheMiss {
		t.Fatalf("err = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Set_AlreadyExpiredIsNotStored(t *testing.T) {
	client := setupTestRedis(t)
	m := NewManager(client)
	ctx := context.Background()

	key := Key{Endpoint: "/v1/expired/"}
	entry := &Entry{Data: []byte("x"), Expires: time.Now().Add(-time.Minute)}

	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	_, err := m.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Fatalf("err = %v, want ErrCacheMiss for an entry stored already-expired", err)
	}
}

func TestManager_Delete(t *testing.T) {
	client := setupTestRedis(t)
	m := NewManager(client)
	ctx := context.Background()

	key := Key{Endpoint: "/v1/deleteme/"}
	entry := &Entry{Data: []byte("x"), Expires: time.Now().Add(time.Minute)}
	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := m.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := m.Get(ctx, key); err != ErrCacheMiss {
		t.Fatalf("err = %v, want ErrCacheMiss after delete", err)
	}
}
