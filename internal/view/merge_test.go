package view_test

import (
	"testing"
	"time"

	"github.com/FarhanAli04/multi-sub000/internal/view"
)

func TestMergeSnapshotKeepsPushProgress(t *testing.T) {
	older := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(5 * time.Minute)

	// Local state absorbed push events while the REST fetch was in flight.
	local := map[string]*view.Conversation{
		"c-1": {ID: "c-1", UnreadCount: 3, LastMessage: "pushed", LastMessageAt: newer},
	}
	snapshot := []view.Conversation{
		{ID: "c-1", OtherUserName: "Seller A", UnreadCount: 1, LastMessage: "fetched", LastMessageAt: older},
	}

	merged := view.MergeSnapshot(local, snapshot)
	c := merged["c-1"]
	if c == nil {
		t.Fatal("Expected conversation c-1 in merge result")
	}
	if c.UnreadCount != 3 {
		t.Errorf("Expected higher unread count to win, got %d", c.UnreadCount)
	}
	if c.LastMessage != "pushed" || !c.LastMessageAt.Equal(newer) {
		t.Errorf("Expected more recent last message to win, got %q at %v", c.LastMessage, c.LastMessageAt)
	}
	if c.OtherUserName != "Seller A" {
		t.Errorf("Expected snapshot metadata to be kept, got %q", c.OtherUserName)
	}
}

func TestMergeSnapshotIsAuthoritativeForMembership(t *testing.T) {
	local := map[string]*view.Conversation{
		"gone": {ID: "gone", UnreadCount: 2},
	}
	snapshot := []view.Conversation{{ID: "kept"}}

	merged := view.MergeSnapshot(local, snapshot)
	if _, ok := merged["gone"]; ok {
		t.Error("Expected conversation absent from snapshot to be dropped")
	}
	if _, ok := merged["kept"]; !ok {
		t.Error("Expected snapshot conversation to be present")
	}
}

func TestMergeSnapshotPrefersSnapshotWhenNewer(t *testing.T) {
	older := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)

	local := map[string]*view.Conversation{
		"c-1": {ID: "c-1", UnreadCount: 0, LastMessage: "stale", LastMessageAt: older},
	}
	snapshot := []view.Conversation{
		{ID: "c-1", UnreadCount: 4, LastMessage: "fresh", LastMessageAt: newer},
	}

	c := view.MergeSnapshot(local, snapshot)["c-1"]
	if c.UnreadCount != 4 || c.LastMessage != "fresh" {
		t.Errorf("Expected snapshot values to win when newer, got %+v", c)
	}
}
