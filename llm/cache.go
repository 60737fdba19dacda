package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cachedProvider memoizes chat completions so a re-run over unchanged
// sources does not repeat identical prompts. Embeddings pass through
// untouched.
type cachedProvider struct {
	inner Provider
	chats *lru.Cache[string, *ChatResponse]
}

// NewCached wraps a provider with an LRU chat-completion cache holding
// up to size entries. A size of zero or less disables caching and
// returns the provider unchanged.
func NewCached(p Provider, size int) Provider {
	if size <= 0 {
		return p
	}
	chats, err := lru.New[string, *ChatResponse](size)
	if err != nil {
		return p
	}
	return &cachedProvider{inner: p, chats: chats}
}

func (p *cachedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	key := chatKey(req)
	if resp, ok := p.chats.Get(key); ok {
		slog.Debug("llm: chat cache hit", "key", key[:12])
		return resp, nil
	}

	resp, err := p.inner.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	p.chats.Add(key, resp)
	return resp, nil
}

func (p *cachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.inner.Embed(ctx, texts)
}

// chatKey derives a stable cache key from the full request.
func chatKey(req ChatRequest) string {
	data, _ := json.Marshal(req)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
