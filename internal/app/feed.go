package app

import (
	"sync"

	"classquiz-service/internal/domain"
)

// GroupFeed fans leaderboard snapshots out to subscribers of a group.
type GroupFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.Leaderboard]struct{}
}

func NewGroupFeed() *GroupFeed {
	return &GroupFeed{subs: make(map[string]map[chan domain.Leaderboard]struct{})}
}

// Subscribe returns a channel of leaderboard snapshots for a group. The
// caller must invoke the returned cancel function to avoid leaks.
func (f *GroupFeed) Subscribe(groupID string) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	f.mu.Lock()
	if f.subs[groupID] == nil {
		f.subs[groupID] = make(map[chan domain.Leaderboard]struct{})
	}
	f.subs[groupID][ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if set, ok := f.subs[groupID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(f.subs, groupID)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of its group. Slow
// subscribers have their stale snapshot dropped so publishing never blocks.
func (f *GroupFeed) Publish(lb domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[lb.GroupID] {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
