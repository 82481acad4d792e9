// Message admission gate for chat pipelines.
//
// This package (`github.com/hushmod/hush/moderation`) decides, synchronously and per message, whether an inbound chat message from a user is accepted or dropped. The decision combines explicit (permanent) mutes, temporary time-boxed mutes, a sliding-window rate limit, and prohibited-content pattern matching. Rate and content violations install a temporary mute on the sender as a side effect.
//
// State lives in pluggable stores (in-process memory or redis), and the engine is an explicitly constructed value, so a host can run several independent gates (eg, per channel). See `cmd/hushd` for a daemon built on this package.
package moderation
