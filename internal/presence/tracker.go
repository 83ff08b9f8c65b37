package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"channel-chat-service/internal/broadcast"
	"channel-chat-service/internal/models"
	"channel-chat-service/internal/observability"
)

// Config holds the tracker's timing knobs.
type Config struct {
	// SweepInterval is how often stale entries are reaped.
	SweepInterval time.Duration
	// InactiveAfter is how long a user may go without a heartbeat before
	// being considered offline.
	InactiveAfter time.Duration
}

// Tracker answers "who is active in this channel right now". State is
// process-local and rebuilt from heartbeats after a restart.
//
// Each channel owns its own lock, so heartbeats for different users in the
// same channel serialize while channels never contend with each other. Lock
// order is always tracker then channel.
type Tracker struct {
	mu       sync.RWMutex
	channels map[string]*channelState

	bus    broadcast.Bus
	logger *zap.SugaredLogger
	cfg    Config

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

type channelState struct {
	mu    sync.Mutex
	users map[string]time.Time

	// removed is set under mu when the state is dropped from the channels
	// map. A writer that fetched the state before the drop must re-look it
	// up instead of mutating the orphan.
	removed bool
}

// NewTracker builds a Tracker publishing transitions on bus.
func NewTracker(bus broadcast.Bus, logger *zap.SugaredLogger, cfg Config) *Tracker {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.InactiveAfter <= 0 {
		cfg.InactiveAfter = time.Minute
	}
	return &Tracker{
		channels: make(map[string]*channelState),
		bus:      bus,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Heartbeat refreshes the user's last-seen timestamp. A status change is
// broadcast only when the user comes online (absent, or present but already
// past the inactivity threshold); steady-state heartbeats refresh silently
// so the bus is not flooded once per heartbeat interval.
func (t *Tracker) Heartbeat(ctx context.Context, channel, username string) {
	now := t.now()

	var cameOnline bool
	var active []models.ActiveUser
	for {
		cs := t.channel(channel)
		cs.mu.Lock()
		if cs.removed {
			cs.mu.Unlock()
			continue
		}
		last, known := cs.users[username]
		cameOnline = !known || now.Sub(last) > t.cfg.InactiveAfter
		cs.users[username] = now
		if cameOnline {
			active = activeLocked(cs)
		}
		cs.mu.Unlock()
		break
	}

	if cameOnline {
		t.broadcastChange(ctx, channel, username, models.PresenceOnline, now, active)
	}
}

// MarkOffline removes the user immediately and broadcasts the change.
func (t *Tracker) MarkOffline(ctx context.Context, channel, username string) {
	now := t.now()

	t.mu.RLock()
	cs, ok := t.channels[channel]
	t.mu.RUnlock()
	if !ok {
		return
	}

	cs.mu.Lock()
	_, present := cs.users[username]
	if present {
		delete(cs.users, username)
	}
	var active []models.ActiveUser
	if present {
		active = activeLocked(cs)
	}
	cs.mu.Unlock()

	if !present {
		return
	}
	t.broadcastChange(ctx, channel, username, models.PresenceOffline, now, active)
	t.removeIfEmpty(channel, cs)
}

// ActiveUsers returns the channel's current presence list, ordered by
// username.
func (t *Tracker) ActiveUsers(channel string) []models.ActiveUser {
	t.mu.RLock()
	cs, ok := t.channels[channel]
	t.mu.RUnlock()
	if !ok {
		return nil
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return activeLocked(cs)
}

// Run sweeps stale entries on a fixed interval until Stop is called.
func (t *Tracker) Run(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.Sweep(ctx)
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop terminates the sweep loop and waits for it to exit.
func (t *Tracker) Stop() {
	close(t.stop)
	<-t.done
}

// Sweep removes every entry whose last heartbeat exceeds the inactivity
// threshold, broadcasting exactly one offline transition per removed user,
// and drops channels left empty.
func (t *Tracker) Sweep(ctx context.Context) {
	now := t.now()

	t.mu.RLock()
	names := make([]string, 0, len(t.channels))
	states := make([]*channelState, 0, len(t.channels))
	for name, cs := range t.channels {
		names = append(names, name)
		states = append(states, cs)
	}
	t.mu.RUnlock()

	for i, cs := range states {
		channel := names[i]

		cs.mu.Lock()
		var expired []string
		for username, last := range cs.users {
			if now.Sub(last) > t.cfg.InactiveAfter {
				expired = append(expired, username)
			}
		}
		sort.Strings(expired)
		snapshots := make([][]models.ActiveUser, 0, len(expired))
		for _, username := range expired {
			delete(cs.users, username)
			snapshots = append(snapshots, activeLocked(cs))
		}
		cs.mu.Unlock()

		for j, username := range expired {
			t.logger.Debugw("presence entry expired", "channel", channel, "username", username)
			t.broadcastChange(ctx, channel, username, models.PresenceOffline, now, snapshots[j])
		}
		if len(expired) > 0 {
			t.removeIfEmpty(channel, cs)
		}
	}
}

func (t *Tracker) channel(name string) *channelState {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs, ok := t.channels[name]
	if !ok {
		cs = &channelState{users: make(map[string]time.Time)}
		t.channels[name] = cs
	}
	return cs
}

func (t *Tracker) removeIfEmpty(name string, cs *channelState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.channels[name]; !ok || current != cs {
		return
	}
	cs.mu.Lock()
	if len(cs.users) == 0 {
		cs.removed = true
		delete(t.channels, name)
	}
	cs.mu.Unlock()
}

func (t *Tracker) broadcastChange(ctx context.Context, channel, username, status string, ts time.Time, active []models.ActiveUser) {
	observability.IncPresenceTransition(status)
	t.bus.Publish(ctx, channel, models.EventUserStatusChange, models.UserStatusChange{
		Username:    username,
		Status:      status,
		Timestamp:   ts,
		ActiveUsers: active,
	})
}

func activeLocked(cs *channelState) []models.ActiveUser {
	active := make([]models.ActiveUser, 0, len(cs.users))
	for username, last := range cs.users {
		active = append(active, models.ActiveUser{Username: username, Timestamp: last})
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Username < active[j].Username })
	return active
}
