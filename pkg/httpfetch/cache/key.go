package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a unique cached response: an endpoint path plus its path
// and query parameters. Generalized from the teacher's CacheKey, which also
// carried an ESI-specific CharacterID field; that field has no home outside
// one particular API, so it is dropped rather than generalized to a
// meaningless "extra int".
type Key struct {
	Endpoint    string
	PathParams  map[string]string
	QueryParams url.Values
}

// String generates a deterministic cache key string.
//
// Format: pagesched:endpoint:param1=val1:param2=val2:query1=val1
func (k Key) String() string {
	parts := []string{"pagesched"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.PathParams) > 0 {
		pathKeys := make([]string, 0, len(k.PathParams))
		for key := range k.PathParams {
			pathKeys = append(pathKeys, key)
		}
		sort.Strings(pathKeys)
		for _, key := range pathKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.PathParams[key]))
		}
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)
		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
