// Package corpus resolves the document-store handle used by grounded calls.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"municipal-assistant-be/pkg/llm"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const cacheKey = "corpus"

// Reader is the slice of the redis client the provider needs.
type Reader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Provider resolves the handle on each request: a configured handle wins,
// then a short-lived local cache, then the key written by the ingestion
// service. An unset key is not an error; it yields an empty corpus.
type Provider struct {
	static string
	redis  Reader
	key    string
	cache  *cache.Cache
}

func NewProvider(static string, r Reader, key string, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Provider{
		static: strings.TrimSpace(static),
		redis:  r,
		key:    key,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (p *Provider) Resolve(ctx context.Context) (llm.Corpus, error) {
	if p.static != "" {
		return llm.Corpus{Handle: p.static}, nil
	}
	if x, found := p.cache.Get(cacheKey); found {
		return llm.Corpus{Handle: x.(string)}, nil
	}
	if p.redis == nil || p.key == "" {
		return llm.Corpus{}, nil
	}

	handle, err := p.redis.Get(ctx, p.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return llm.Corpus{}, nil
		}
		return llm.Corpus{}, fmt.Errorf("read corpus handle: %w", err)
	}

	handle = strings.TrimSpace(handle)
	if handle != "" {
		p.cache.SetDefault(cacheKey, handle)
	}
	return llm.Corpus{Handle: handle}, nil
}
