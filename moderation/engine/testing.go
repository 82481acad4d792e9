package engine

import (
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/hushmod/hush/moderation/countstore"
	"github.com/hushmod/hush/moderation/keyword"
	"github.com/hushmod/hush/moderation/mutestore"
	"github.com/hushmod/hush/moderation/ratestore"
)

// Engine with in-memory stores, default limits, and the default content rules, all driven by a mock clock. Intentionally exported, for use in other packages' tests.
func EngineTestFixture() (*Engine, *clock.Mock) {
	clk := clock.NewMock()
	rates, err := ratestore.NewMemRateLimiter(ratestore.DefaultConfig(), clk)
	if err != nil {
		panic(err)
	}
	eng := Engine{
		Logger:   slog.Default(),
		Mutes:    mutestore.NewMemMuteStore(clk),
		Rates:    rates,
		Patterns: keyword.MustNewPatternSet(keyword.DefaultPatterns()),
		Counters: countstore.NewMemCountStore(clk),
		Config:   DefaultConfig(),
	}
	return &eng, clk
}
