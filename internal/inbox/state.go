// Package inbox is an admin's live notification session: the list, the
// unread badge and the delivery policy for new arrivals.
package inbox

import (
	"sort"

	"github.com/wolfman30/agency-backoffice/internal/notify"
)

// State is the list newest first plus the unread counter.
type State struct {
	Notifications []notify.Notification
	Unread        int
}

// NewState counts unread rows in list.
func NewState(list []notify.Notification) State {
	s := State{Notifications: append([]notify.Notification(nil), list...)}
	for _, n := range s.Notifications {
		if !n.Read {
			s.Unread++
		}
	}
	return s
}

func (s State) index(id string) int {
	for i, n := range s.Notifications {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// ApplyInsert prepends n. A row already in the list is ignored, so the feed
// may redeliver without double counting. added reports whether n was new.
func ApplyInsert(s State, n notify.Notification) (next State, added bool) {
	if s.index(n.ID) >= 0 {
		return s, false
	}
	list := make([]notify.Notification, 0, len(s.Notifications)+1)
	list = append(list, n)
	list = append(list, s.Notifications...)
	next = State{Notifications: list, Unread: s.Unread}
	if !n.Read {
		next.Unread++
	}
	return next, true
}

// ApplyUpdate replaces the row with the same id and reconciles the counter.
// The locally held row is the authority for the previous read state; old
// from the feed is only used when the row is not held locally.
func ApplyUpdate(s State, old *notify.Notification, n notify.Notification) State {
	next := State{Notifications: append([]notify.Notification(nil), s.Notifications...), Unread: s.Unread}

	i := next.index(n.ID)
	var wasRead, known bool
	if i >= 0 {
		wasRead, known = next.Notifications[i].Read, true
		next.Notifications[i] = n
	} else if old != nil {
		wasRead, known = old.Read, true
	}
	if !known {
		return next
	}

	switch {
	case !wasRead && n.Read:
		next.Unread--
	case wasRead && !n.Read:
		next.Unread++
	}
	if next.Unread < 0 {
		next.Unread = 0
	}
	return next
}

// markRead flips one row. It returns s unchanged when the row is already read.
func markRead(s State, id string) (State, bool) {
	i := s.index(id)
	if i < 0 || s.Notifications[i].Read {
		return s, false
	}
	next := State{Notifications: append([]notify.Notification(nil), s.Notifications...), Unread: s.Unread - 1}
	next.Notifications[i].Read = true
	if next.Unread < 0 {
		next.Unread = 0
	}
	return next, true
}

// markAllRead flips only the rows the server reported. A row that arrived
// after the server's update stays unread.
func markAllRead(s State, ids []string) State {
	flipped := make(map[string]bool, len(ids))
	for _, id := range ids {
		flipped[id] = true
	}
	next := State{Notifications: append([]notify.Notification(nil), s.Notifications...)}
	for i, n := range next.Notifications {
		if flipped[n.ID] {
			next.Notifications[i].Read = true
		}
		if !next.Notifications[i].Read {
			next.Unread++
		}
	}
	return next
}

// Merge folds a fresh server listing into s. Listed rows replace the local
// copies; local rows missing from the listing are kept. The result is newest
// first and the counter is recounted.
func Merge(s State, list []notify.Notification) State {
	merged := make([]notify.Notification, 0, len(list)+len(s.Notifications))
	seen := make(map[string]bool, len(list))
	for _, n := range list {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		merged = append(merged, n)
	}
	for _, n := range s.Notifications {
		if !seen[n.ID] {
			merged = append(merged, n)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return NewState(merged)
}
