package protocoltypes

import (
	"net/http"
	"net/url"
	"time"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
)

// DefaultRequestTimeout bounds one chat call when the caller sets none.
const DefaultRequestTimeout = 120 * time.Second

// CallOptions is the typed form of the options map passed to Chat.
type CallOptions struct {
	MaxTokens      int
	Temperature    float64
	HasTemperature bool
}

// ParseCallOptions reads max_tokens and temperature, accepting any numeric
// type. Unknown keys are ignored.
func ParseCallOptions(options map[string]any) CallOptions {
	var o CallOptions
	if n, ok := number(options["max_tokens"]); ok && n > 0 {
		o.MaxTokens = int(n)
	}
	if t, ok := number(options["temperature"]); ok {
		o.Temperature = t
		o.HasTemperature = true
	}
	return o
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// NewHTTPClient returns the client an adapter hands to its SDK. An invalid
// proxy is logged under component and ignored.
func NewHTTPClient(component, proxy string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	c := &http.Client{Timeout: timeout}
	if proxy == "" {
		return c
	}
	parsed, err := url.Parse(proxy)
	if err != nil || parsed.Host == "" {
		fields := map[string]any{"proxy": proxy}
		if err != nil {
			fields["error"] = err.Error()
		}
		logger.WarnCF(component, "Ignoring invalid proxy URL", fields)
		return c
	}
	c.Transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
	return c
}
