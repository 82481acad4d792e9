package engine

import (
	"time"

	"github.com/hushmod/hush/moderation/keyword"
	"github.com/hushmod/hush/moderation/mutestore"
)

const (
	ReasonNone              = ""
	ReasonMuted             = "muted"
	ReasonRateLimited       = "rate-limited"
	ReasonProhibitedContent = "prohibited-content"
)

// Outcome of evaluating a single message.
type Decision struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	// Temporary mute installed as a side effect of this decision (zero if none).
	MuteDuration time.Duration `json:"muteDuration,omitempty"`
	// The content rule which matched, for ReasonProhibitedContent.
	Pattern *keyword.Pattern `json:"pattern,omitempty"`
}

// Label used for metrics and logging. Accepted messages are "accepted".
func (d *Decision) Label() string {
	if d.Accepted {
		return "accepted"
	}
	return d.Reason
}

// Moderator view of a single user.
type UserStatus struct {
	User       string               `json:"userId"`
	Mute       mutestore.MuteRecord `json:"mute"`
	Muted      bool                 `json:"muted"`
	Violations map[string]int       `json:"violations"`
}
