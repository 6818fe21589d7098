package frontend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fenwicklabs/pagesched/pkg/pagestate"
	"github.com/fenwicklabs/pagesched/pkg/parser"
	"github.com/fenwicklabs/pagesched/pkg/scheduler"
)

func withTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func TestPaginateCollection_OrderMatchesInputAndDropsSpawns(t *testing.T) {
	p := parser.MultiStateParser(
		func(response any) []parser.StateResult {
			id := response.(string)
			if id == "root" {
				return []parser.StateResult{{EntityType: "accounts", ID: "root", Items: []any{"r"}, Cursor: nil}}
			}
			return []parser.StateResult{{EntityType: "accounts", ID: id, Items: []any{"item-" + id}, Cursor: nil}}
		},
		func(response any) []*pagestate.State {
			if response.(string) == "root" {
				return []*pagestate.State{pagestate.New("spawned_child", "x")}
			}
			return nil
		},
	)
	cfg := scheduler.NewByEntityType(p)
	cfg.Registry.Register("accounts", func(ctx context.Context, params any, members []*pagestate.State) (any, error) {
		return members[0].ID.(string), nil
	})
	cfg.Registry.Register("spawned_child", func(ctx context.Context, params any, members []*pagestate.State) (any, error) {
		return "child", nil
	})

	sched := scheduler.New(cfg)
	ctx, cancel := withTimeout(t)
	defer cancel()

	results, err := PaginateCollection(ctx, sched, nil, "accounts", []any{"a", "b", "root"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %v, want 3 entries", results)
	}
	if v := results[0]; len(v) != 1 || v[0] != "item-a" {
		t.Fatalf("results[0] (id a) = %v, want [item-a]", v)
	}
	if v := results[1]; len(v) != 1 || v[0] != "item-b" {
		t.Fatalf("results[1] (id b) = %v, want [item-b]", v)
	}
	if v := results[2]; len(v) != 1 || v[0] != "r" {
		t.Fatalf("results[2] (id root) = %v, want [r]", v)
	}
	for _, items := range results {
		for _, item := range items {
			if item == "child" {
				t.Fatal("spawned_child state must not appear in PaginateCollection's result")
			}
		}
	}
}

func TestPaginateOne(t *testing.T) {
	p := parser.SingleStateParser(
		func(response any) []any { return response.([]any) },
		func(response any) any { return nil },
		nil,
	)
	cfg := scheduler.NewByEntityType(p)
	cfg.Registry.Register("widget", func(ctx context.Context, params any, members []*pagestate.State) (any, error) {
		return []any{"x", "y"}, nil
	})

	sched := scheduler.New(cfg)
	ctx, cancel := withTimeout(t)
	defer cancel()

	items, err := PaginateOne(ctx, sched, nil, "widget", "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0] != "x" || items[1] != "y" {
		t.Fatalf("items = %v, want [x y]", items)
	}
}

func TestPaginateOne_Idempotent(t *testing.T) {
	p := parser.SingleStateParser(
		func(response any) []any { return response.([]any) },
		func(response any) any { return nil },
		nil,
	)
	newSched := func() *scheduler.Scheduler[string] {
		cfg := scheduler.NewByEntityType(p)
		cfg.Registry.Register("widget", func(ctx context.Context, params any, members []*pagestate.State) (any, error) {
			return []any{"x", "y", "z"}, nil
		})
		return scheduler.New(cfg)
	}

	ctx, cancel := withTimeout(t)
	defer cancel()

	first, err := PaginateOne(ctx, newSched(), nil, "widget", "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := PaginateOne(ctx, newSched(), nil, "widget", "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("first=%v second=%v, want equal length", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("first=%v second=%v, want equal", first, second)
		}
	}
}

func TestPaginate_RaisesFirstException(t *testing.T) {
	boom := errors.New("boom")
	p := parser.SingleStateParser(
		func(response any) []any { return nil },
		func(response any) any { return nil },
		nil,
	)
	cfg := scheduler.NewByEntityType(p).WithConcurrency(1).WithBatcher(false, 1, nil, nil)
	cfg.Registry.Register("widget", func(ctx context.Context, params any, members []*pagestate.State) (any, error) {
		if members[0].ID == "bad" {
			return nil, boom
		}
		return nil, nil
	})

	sched := scheduler.New(cfg)
	ctx, cancel := withTimeout(t)
	defer cancel()

	_, err := Paginate(ctx, sched, nil, []Seed{{EntityType: "widget", ID: "bad"}, {EntityType: "widget", ID: "good"}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapping %v", err, boom)
	}
}
