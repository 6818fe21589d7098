package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/fenwicklabs/pagesched/pkg/frontend"
	"github.com/fenwicklabs/pagesched/pkg/httpfetch"
	"github.com/fenwicklabs/pagesched/pkg/logging"
	"github.com/fenwicklabs/pagesched/pkg/pagestate"
	"github.com/fenwicklabs/pagesched/pkg/parser"
	"github.com/fenwicklabs/pagesched/pkg/scheduler"
)

var runEntityType string

var runCmd = &cobra.Command{
	Use:   "run [ids...]",
	Short: "Paginate one or more entities and print their accumulated items as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runE,
}

func init() {
	runCmd.Flags().StringVar(&runEntityType, "entity-type", "items", "entity type to request (used to build the request path)")
}

func runE(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viperInstance, cfgFile)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	logger := logging.Setup(logging.Config{Level: logging.LogLevel(cfg.LogLevel), Output: os.Stderr}).
		With().Str("run_id", runID).Logger()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	defer redisClient.Close()

	fetchCfg := httpfetch.DefaultConfig(redisClient, cfg.UserAgent)
	fetchCfg.BaseURL = cfg.BaseURL
	client, err := httpfetch.New(fetchCfg)
	if err != nil {
		return fmt.Errorf("build httpfetch client: %w", err)
	}

	p := parser.SingleStateParser(itemsOf, cursorOf, nil)
	schedCfg := scheduler.NewByEntityType(p).WithConcurrency(cfg.Scheduler.Concurrency)
	if cfg.Scheduler.IdleFlush > 0 {
		schedCfg = schedCfg.WithIdleFlush(cfg.Scheduler.IdleFlush)
	}
	schedCfg.Registry.Register(runEntityType, fetchPage(client, runEntityType))

	sched := scheduler.New(schedCfg)

	ids := make([]any, len(args))
	for i, a := range args {
		ids[i] = a
	}

	logger.Info().Strs("ids", args).Str("entity_type", runEntityType).Msg("starting pagination run")

	results, runErr := frontend.PaginateCollection(ctx, sched, nil, runEntityType, ids)
	if runErr != nil {
		logger.Error().Err(runErr).Msg("pagination run finished with an error")
	}

	// results is ordered the same as args/ids; pair them back up for
	// readable JSON output rather than printing a bare array of arrays.
	byID := make(map[string][]any, len(args))
	for i, a := range args {
		byID[a] = results[i]
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(byID); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	if runErr != nil {
		return runErr
	}
	return nil
}

// fetchPage builds a FetchFunc that GETs one page of entityType/id, keyed
// by the single member's cursor token (empty for the first page).
func fetchPage(client *httpfetch.Client, entityType string) scheduler.FetchFunc {
	return func(ctx context.Context, params any, members []*pagestate.State) (any, error) {
		if len(members) != 1 {
			return nil, fmt.Errorf("fetchPage: expected exactly one member, got %d", len(members))
		}
		member := members[0]

		path := fmt.Sprintf("/%s/%v/", entityType, member.ID)
		if token, ok := member.Cursor.Token(); ok {
			path += "?" + url.Values{"cursor": {fmt.Sprintf("%v", token)}}.Encode()
		}

		resp, err := client.Get(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", path, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		var page apiPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode response body: %w", err)
		}
		return &page, nil
	}
}

func itemsOf(response any) []any {
	page, ok := response.(*apiPage)
	if !ok || page == nil {
		return nil
	}
	return page.Items
}

func cursorOf(response any) any {
	page, ok := response.(*apiPage)
	if !ok || page == nil || page.NextCursor == "" {
		return nil
	}
	return page.NextCursor
}

// apiPage is the generic cursor-paginated JSON envelope this CLI expects
// from BaseURL: a page of items plus the cursor for the next request.
type apiPage struct {
	Items      []any  `json:"items"`
	NextCursor string `json:"next_cursor"`
}
