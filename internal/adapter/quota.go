package adapter

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wallet-insights/internal/config"
	"github.com/wallet-insights/internal/ratelimit"
)

// ApplyQuotas paces both clients against the budgets in cfg, shared through
// client. It does nothing when quotas are disabled.
func ApplyQuotas(client redis.Cmdable, cfg config.QuotaConfig, oneInch *OneInchClient, llm *LLMClient) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.OneInchPerSecond > 0 && oneInch != nil {
		p, err := ratelimit.NewProviderPacer(client, oneInchProvider, cfg.OneInchPerSecond, time.Second, cfg.MaxWait)
		if err != nil {
			return fmt.Errorf("failed to create %s pacer: %w", oneInchProvider, err)
		}
		oneInch.SetPacer(p)
	}

	if cfg.LLMPerMinute > 0 && llm != nil {
		p, err := ratelimit.NewProviderPacer(client, llmProvider, cfg.LLMPerMinute, time.Minute, cfg.MaxWait)
		if err != nil {
			return fmt.Errorf("failed to create %s pacer: %w", llmProvider, err)
		}
		llm.SetPacer(p)
	}

	return nil
}
