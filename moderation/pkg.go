package moderation

import (
	"github.com/hushmod/hush/moderation/countstore"
	"github.com/hushmod/hush/moderation/engine"
	"github.com/hushmod/hush/moderation/keyword"
	"github.com/hushmod/hush/moderation/mutestore"
	"github.com/hushmod/hush/moderation/ratestore"
)

type Engine = engine.Engine
type EngineConfig = engine.Config
type Decision = engine.Decision
type UserStatus = engine.UserStatus

type Pattern = keyword.Pattern
type PatternSet = keyword.PatternSet

type MuteStore = mutestore.MuteStore
type MuteRecord = mutestore.MuteRecord
type RateLimiter = ratestore.RateLimiter
type RateConfig = ratestore.Config
type CountStore = countstore.CountStore

var (
	ErrInvalidInput   = engine.ErrInvalidInput
	ErrInvalidPattern = keyword.ErrInvalidPattern

	ReasonMuted             = engine.ReasonMuted
	ReasonRateLimited       = engine.ReasonRateLimited
	ReasonProhibitedContent = engine.ReasonProhibitedContent

	Word   = keyword.Word
	Phrase = keyword.Phrase
	Regex  = keyword.Regex

	DefaultPatterns = keyword.DefaultPatterns
	NewPatternSet   = keyword.NewPatternSet
)
