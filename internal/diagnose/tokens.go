package diagnose

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// estimateTokens counts prompt tokens with the cl100k_base encoding. The
// oracle model's tokenizer differs slightly, so this is a budget estimate,
// not an exact count. Falls back to a bytes/4 heuristic if the encoding is
// unavailable.
func estimateTokens(text string) int {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			codec = c
		}
	})
	if codec == nil {
		return len(text) / 4
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return len(text) / 4
	}
	return len(ids)
}
