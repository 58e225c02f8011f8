package status

import (
	"path/filepath"
	"testing"

	"github.com/civicinbox/inboxd/internal/inbox"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "status.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put("msg-a", inbox.Status{IsRead: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put("msg-b", inbox.Status{IsArchived: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(got))
	}
	if !got["msg-a"].IsRead || got["msg-a"].IsArchived {
		t.Errorf("msg-a status wrong: %+v", got["msg-a"])
	}
	if got["msg-b"].IsRead || !got["msg-b"].IsArchived {
		t.Errorf("msg-b status wrong: %+v", got["msg-b"])
	}
}

func TestPutUpserts(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put("msg-a", inbox.Status{IsRead: false}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put("msg-a", inbox.Status{IsRead: true, IsArchived: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st := got["msg-a"]; !st.IsRead || !st.IsArchived {
		t.Errorf("second Put must overwrite: %+v", st)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"msg-a", "msg-b", "msg-c"} {
		if err := store.Put(id, inbox.Status{IsRead: true}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := store.Delete([]string{"msg-a", "msg-c"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 remaining status, got %d", len(got))
	}
	if _, ok := got["msg-b"]; !ok {
		t.Error("msg-b must survive the delete")
	}
}

func TestDeleteEmpty(t *testing.T) {
	store := openTestStore(t)
	if err := store.Delete(nil); err != nil {
		t.Fatalf("deleting nothing must succeed: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Put("msg-a", inbox.Status{IsRead: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got["msg-a"].IsRead {
		t.Error("statuses must survive a restart")
	}
}
