package view

// MergeSnapshot reconciles a fresh REST conversation snapshot with local
// state that may have absorbed push events while the fetch was in flight.
// The snapshot is authoritative for membership and metadata; per conversation
// the higher unread count and the more recent last message win, so unread
// increments accrued during the fetch window are not erased.
func MergeSnapshot(local map[string]*Conversation, snapshot []Conversation) map[string]*Conversation {
	merged := make(map[string]*Conversation, len(snapshot))
	for _, sc := range snapshot {
		c := sc
		if lc, ok := local[c.ID]; ok {
			if lc.UnreadCount > c.UnreadCount {
				c.UnreadCount = lc.UnreadCount
			}
			if lc.LastMessageAt.After(c.LastMessageAt) {
				c.LastMessage = lc.LastMessage
				c.LastMessageAt = lc.LastMessageAt
			}
		}
		merged[c.ID] = &c
	}
	return merged
}
