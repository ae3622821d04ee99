package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"

	"docchat/pkg/domain"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := OpenGormStore(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	return s
}

func seedUser(t *testing.T, s *GormStore, id string) domain.User {
	t.Helper()
	u, err := s.CreateUser(domain.User{
		ID:      id,
		Subject: "sub-" + id,
		Email:   id + "@example.com",
		Name:    "User " + id,
		Role:    domain.RoleUser,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestUserProfileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "u1")
	if u.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be assigned")
	}
	got, ok, err := s.GetUserBySubject("sub-u1")
	if err != nil || !ok {
		t.Fatalf("get by subject: ok=%v err=%v", ok, err)
	}
	if got.Email != "u1@example.com" {
		t.Fatalf("unexpected email %q", got.Email)
	}

	name := "Renamed"
	touched, err := s.UpdateUserProfile("u1", ProfileUpdate{Name: &name})
	if err != nil || !touched {
		t.Fatalf("update profile: touched=%v err=%v", touched, err)
	}
	got, _, _ = s.GetUserByID("u1")
	if got.Name != "Renamed" {
		t.Fatalf("profile update not applied, got %q", got.Name)
	}
	if touched, err := s.UpdateUserProfile("missing", ProfileUpdate{Name: &name}); err != nil || touched {
		t.Fatalf("update of missing user should touch nothing, touched=%v err=%v", touched, err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")
	if _, err := s.InsertFile(domain.File{ID: "f1", OwnerID: "u1", StoredName: "f1.pdf", OriginalName: "a.pdf", Collection: "Legal", Path: "/tmp/f1.pdf"}); err != nil {
		t.Fatalf("insert file: %v", err)
	}
	if err := s.CreateSession(domain.ChatSession{ID: "s1", OwnerID: "u1", Name: "chat", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := s.CreateUserMessage(domain.ChatMessage{ID: "m1", SessionID: "s1", Sender: domain.SenderUser, Text: "hi", CreatedAt: time.Now().UTC()}, []string{"f1"}); err != nil {
		t.Fatalf("create message: %v", err)
	}
	if err := s.AddMemory(domain.Memory{ID: "mem1", OwnerID: "u1", Content: "likes short answers"}); err != nil {
		t.Fatalf("add memory: %v", err)
	}

	deleted, err := s.DeleteUser("u1")
	if err != nil || !deleted {
		t.Fatalf("delete user: deleted=%v err=%v", deleted, err)
	}
	if _, ok, _ := s.GetFileOwned("f1", "u1"); ok {
		t.Fatalf("file should cascade away")
	}
	if _, ok, _ := s.GetSession("s1"); ok {
		t.Fatalf("session should cascade away")
	}
	msgs, err := s.ListSessionMessages("s1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("messages should cascade away, got %d", len(msgs))
	}
	mems, _ := s.ListMemories("u1")
	if len(mems) != 0 {
		t.Fatalf("memories should cascade away, got %d", len(mems))
	}
}

func TestFilesByCollection(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")
	for i, coll := range []string{"Legal", "Legal", "HR"} {
		id := fmt.Sprintf("f%d", i+1)
		if _, err := s.InsertFile(domain.File{ID: id, OwnerID: "u1", StoredName: id + ".pdf", OriginalName: id + ".pdf", Collection: coll, Path: "/tmp/" + id}); err != nil {
			t.Fatalf("insert file %s: %v", id, err)
		}
	}
	legal, err := s.ListFilesByCollection("u1", "Legal")
	if err != nil {
		t.Fatalf("list by collection: %v", err)
	}
	if len(legal) != 2 {
		t.Fatalf("expected 2 legal files, got %d", len(legal))
	}
	colls, err := s.ListCollections("u1")
	if err != nil {
		t.Fatalf("list collections: %v", err)
	}
	if len(colls) != 2 {
		t.Fatalf("expected 2 collections, got %v", colls)
	}
	n, err := s.DeleteFilesByCollection("u1", "Legal")
	if err != nil || n != 2 {
		t.Fatalf("delete collection: n=%d err=%v", n, err)
	}
	if left, _ := s.ListFilesByOwner("u1"); len(left) != 1 {
		t.Fatalf("expected 1 remaining file, got %d", len(left))
	}
}

func TestDeleteFileScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")
	if _, err := s.InsertFile(domain.File{ID: "f1", OwnerID: "u1", StoredName: "f1.pdf", OriginalName: "f1.pdf", Collection: "Legal", Path: "/tmp/f1"}); err != nil {
		t.Fatalf("insert file: %v", err)
	}
	if deleted, err := s.DeleteFile("f1", "u2"); err != nil || deleted {
		t.Fatalf("foreign owner must not delete, deleted=%v err=%v", deleted, err)
	}
	if deleted, err := s.DeleteFile("f1", "u1"); err != nil || !deleted {
		t.Fatalf("owner delete failed, deleted=%v err=%v", deleted, err)
	}
}

func TestSessionFileAssociationIsSetUnion(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")
	if err := s.CreateSession(domain.ChatSession{ID: "s1", OwnerID: "u1", Name: "chat", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	base := time.Now().UTC()
	if err := s.CreateUserMessage(domain.ChatMessage{ID: "m1", SessionID: "s1", Sender: domain.SenderUser, Text: "one", CreatedAt: base}, []string{"f1", "f2"}); err != nil {
		t.Fatalf("first message: %v", err)
	}
	// repeating f1 must not fail nor duplicate the pair
	if err := s.CreateUserMessage(domain.ChatMessage{ID: "m2", SessionID: "s1", Sender: domain.SenderUser, Text: "two", CreatedAt: base.Add(time.Second)}, []string{"f1", "f3"}); err != nil {
		t.Fatalf("second message with duplicate association: %v", err)
	}
	msgs, err := s.ListSessionMessages("s1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("unexpected message order: %+v", msgs)
	}
}

func TestMessagesOrderedAndFilesUsedRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")
	if err := s.CreateSession(domain.ChatSession{ID: "s1", OwnerID: "u1", Name: "chat", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	base := time.Now().UTC().Truncate(time.Millisecond)
	if err := s.CreateUserMessage(domain.ChatMessage{ID: "m1", SessionID: "s1", Sender: domain.SenderUser, Text: "Summarize", CreatedAt: base}, []string{"f1"}); err != nil {
		t.Fatalf("user message: %v", err)
	}
	if err := s.AppendAIMessage(domain.ChatMessage{ID: "m2", SessionID: "s1", Sender: domain.SenderAI, Text: "Summary.", FilesUsed: []string{"f1.pdf"}, CreatedAt: base.Add(time.Second)}); err != nil {
		t.Fatalf("ai message: %v", err)
	}
	msgs, err := s.ListSessionMessages("s1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("messages out of order")
		}
	}
	if msgs[1].Sender != domain.SenderAI || len(msgs[1].FilesUsed) != 1 || msgs[1].FilesUsed[0] != "f1.pdf" {
		t.Fatalf("filesUsed did not round-trip: %+v", msgs[1])
	}
	if len(msgs[0].FilesUsed) != 0 {
		t.Fatalf("user message must not carry filesUsed")
	}
}

func TestMemoryCap(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")
	for i := 0; i < domain.MemoryMaxPerOwner; i++ {
		if err := s.AddMemory(domain.Memory{ID: fmt.Sprintf("mem%d", i), OwnerID: "u1", Content: "note"}); err != nil {
			t.Fatalf("add memory %d: %v", i, err)
		}
	}
	err := s.AddMemory(domain.Memory{ID: "overflow", OwnerID: "u1", Content: "one too many"})
	if !errors.Is(err, ErrMemoryLimit) {
		t.Fatalf("expected ErrMemoryLimit, got %v", err)
	}
	mems, _ := s.ListMemories("u1")
	if len(mems) != domain.MemoryMaxPerOwner {
		t.Fatalf("count changed after rejected insert: %d", len(mems))
	}
}

func TestSessionRenameAndDelete(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")
	if err := s.CreateSession(domain.ChatSession{ID: "s1", OwnerID: "u1", Name: "old", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if ok, err := s.RenameSession("s1", "u2", "stolen"); err != nil || ok {
		t.Fatalf("foreign owner must not rename, ok=%v err=%v", ok, err)
	}
	if ok, err := s.RenameSession("s1", "u1", "new"); err != nil || !ok {
		t.Fatalf("rename: ok=%v err=%v", ok, err)
	}
	if err := s.CreateUserMessage(domain.ChatMessage{ID: "m1", SessionID: "s1", Sender: domain.SenderUser, Text: "hi", CreatedAt: time.Now().UTC()}, []string{"f1"}); err != nil {
		t.Fatalf("create message: %v", err)
	}
	if ok, err := s.DeleteSession("s1", "u1"); err != nil || !ok {
		t.Fatalf("delete session: ok=%v err=%v", ok, err)
	}
	msgs, _ := s.ListSessionMessages("s1")
	if len(msgs) != 0 {
		t.Fatalf("messages should be removed with the session")
	}
}
