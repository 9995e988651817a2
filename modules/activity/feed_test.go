package activity

import (
	"fmt"
	"testing"
	"time"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestFeed_RecordAndList(t *testing.T) {
	feed := NewFeed(3, sequentialIDs())
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 4; i++ {
		feed.Record(Entry{Owner: "alice", TaskID: fmt.Sprintf("t%d", i), Kind: KindCreated, At: at})
	}
	feed.Record(Entry{Owner: "bob", TaskID: "b1", Kind: KindCreated, At: at})

	got := feed.List("alice", 0)
	if len(got) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(got))
	}
	wantTasks := []string{"t4", "t3", "t2"}
	for i, e := range got {
		if e.TaskID != wantTasks[i] {
			t.Errorf("List()[%d].TaskID = %q, want %q", i, e.TaskID, wantTasks[i])
		}
	}
	if got[0].ID != "id-4" {
		t.Errorf("newest entry ID = %q, want %q", got[0].ID, "id-4")
	}

	if limited := feed.List("alice", 2); len(limited) != 2 || limited[0].TaskID != "t4" {
		t.Errorf("List(limit 2) = %+v, want the two newest", limited)
	}
	if other := feed.List("bob", 10); len(other) != 1 {
		t.Errorf("List(bob) = %d entries, want 1", len(other))
	}
	if none := feed.List("carol", 5); len(none) != 0 {
		t.Errorf("List(carol) = %d entries, want 0", len(none))
	}
	if feed.Owners() != 2 {
		t.Errorf("Owners() = %d, want 2", feed.Owners())
	}
}

func TestFeed_ListReturnsCopy(t *testing.T) {
	feed := NewFeed(5, sequentialIDs())
	feed.Record(Entry{Owner: "alice", Message: "original"})

	got := feed.List("alice", 0)
	got[0].Message = "changed"

	if again := feed.List("alice", 0); again[0].Message != "original" {
		t.Errorf("feed entry changed through List() result: %q", again[0].Message)
	}
}

func TestNewFeed_DefaultSize(t *testing.T) {
	feed := NewFeed(0, sequentialIDs())
	if feed.size != DefaultFeedSize {
		t.Errorf("size = %d, want %d", feed.size, DefaultFeedSize)
	}
}
