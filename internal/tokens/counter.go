package tokens

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// FallbackEncoding is used for models tiktoken does not know, Perplexity models included.
const FallbackEncoding = "cl100k_base"

const runesPerToken = 4

var loaderOnce sync.Once

// Counter counts BPE tokens for one model. It never fails: when no encoder can
// be loaded it estimates from the rune count.
type Counter struct {
	enc *tiktoken.Tiktoken
}

func NewCounter(model string) *Counter {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	model = strings.TrimSpace(model)
	if model != "" {
		if enc, err := tiktoken.EncodingForModel(model); err == nil {
			return &Counter{enc: enc}
		}
	}
	enc, err := tiktoken.GetEncoding(FallbackEncoding)
	if err != nil {
		return &Counter{}
	}
	return &Counter{enc: enc}
}

func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c == nil || c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate approximates a token count from the rune length.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + runesPerToken - 1) / runesPerToken
}
