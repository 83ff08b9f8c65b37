package broadcast

import "context"

// Bus is the named-channel publish/subscribe transport. Delivery is
// at-least-once per live subscriber, unordered across publishers, with no
// persistence and no replay: a subscriber that reconnects has missed
// whatever was published while it was away.
type Bus interface {
	Publish(ctx context.Context, channel, event string, payload any)
}
