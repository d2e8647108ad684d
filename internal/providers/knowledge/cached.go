package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"penny/internal/chat"
	"penny/pkg/requestcontext"
)

const cacheKeyPrefix = "penny:retrieve:"

// CachedRetriever serves repeated queries from a Cache. Cache failures are
// logged and fall through to the wrapped retriever; retriever errors are
// never cached.
type CachedRetriever struct {
	next   chat.Retriever
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedRetriever(next chat.Retriever, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedRetriever {
	return &CachedRetriever{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (r *CachedRetriever) Search(ctx context.Context, query string, topN int) ([]chat.Passage, error) {
	key := cacheKey(query, topN)

	raw, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		r.logger.WarnContext(ctx, "retrieval cache read failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	case ok:
		var passages []chat.Passage
		if err := json.Unmarshal(raw, &passages); err == nil {
			return passages, nil
		}
	}

	passages, err := r.next.Search(ctx, query, topN)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(passages); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
			r.logger.WarnContext(ctx, "retrieval cache write failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	return passages, nil
}

// cacheKey folds case and whitespace so trivially different phrasings share
// an entry.
func cacheKey(query string, topN int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", topN, normalized)))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
