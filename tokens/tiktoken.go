package tokens

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encodings load from BPE ranks embedded in the binary, not the network.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// EncodingCL100kBase is the default tiktoken encoding.
const EncodingCL100kBase = "cl100k_base"

// TiktokenCounter counts tokens with a BPE encoding.
// Gemini does not publish its tokenizer; cl100k_base tracks it closely
// enough for estimates. When the encoding cannot be loaded, as with an
// unknown name, the counter falls back to Heuristic.
type TiktokenCounter struct {
	encoding string
	cache    *ristretto.Cache[string, *tiktoken.Tiktoken]
	loadMu   sync.Mutex
	fallback Heuristic
}

// NewTiktokenCounter creates a counter for the named encoding.
// An empty name selects cl100k_base.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = EncodingCL100kBase
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, *tiktoken.Tiktoken]{
		NumCounters: 64,
		MaxCost:     8,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create encoding cache: %w", err)
	}
	return &TiktokenCounter{encoding: encoding, cache: cache}, nil
}

// Encoding returns the encoding name.
func (c *TiktokenCounter) Encoding() string {
	return c.encoding
}

// Count implements Counter.
// Like Heuristic, every text counts as at least one token.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 1
	}
	enc, err := c.load()
	if err != nil {
		return c.fallback.Count(text)
	}
	return max(1, len(enc.Encode(text, nil, nil)))
}

// load returns the cached encoding, loading it on first use.
func (c *TiktokenCounter) load() (*tiktoken.Tiktoken, error) {
	if enc, ok := c.cache.Get(c.encoding); ok {
		return enc, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if enc, ok := c.cache.Get(c.encoding); ok {
		return enc, nil
	}

	enc, err := tiktoken.GetEncoding(c.encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", c.encoding, err)
	}
	c.cache.Set(c.encoding, enc, 1)
	c.cache.Wait()
	return enc, nil
}

// Close releases the encoding cache.
func (c *TiktokenCounter) Close() {
	c.cache.Close()
}

var _ Counter = (*TiktokenCounter)(nil)
