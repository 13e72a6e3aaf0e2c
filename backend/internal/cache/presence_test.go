package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func presenceTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 14})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return rdb
}

func TestPresence_AddAndListMembers(t *testing.T) {
	p := NewRedisPresence(presenceTestRedis(t))
	ctx := context.Background()

	if err := p.AddMember(ctx, "doc1", 1, "alice", time.Minute); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if err := p.AddMember(ctx, "doc1", 2, "bob", time.Minute); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	members, err := p.GetAliveMembersWithNames(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetAliveMembersWithNames() error = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len(members) = %d, want 2 (got %+v)", len(members), members)
	}
	names := map[uint64]string{}
	for _, m := range members {
		names[m.UserID] = m.Username
	}
	if names[1] != "alice" || names[2] != "bob" {
		t.Fatalf("names = %v, want alice/bob", names)
	}
}

func TestPresence_ExpiredMembersAreCleanedUp(t *testing.T) {
	p := NewRedisPresence(presenceTestRedis(t))
	ctx := context.Background()

	// 负 TTL 等价于已过期（score 在 now 之前）
	if err := p.AddMember(ctx, "doc1", 1, "ghost", -time.Second); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if err := p.AddMember(ctx, "doc1", 2, "bob", time.Minute); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	members, err := p.GetAliveMembersWithNames(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetAliveMembersWithNames() error = %v", err)
	}
	if len(members) != 1 || members[0].UserID != 2 {
		t.Fatalf("members = %+v, want only user 2", members)
	}
}

func TestPresence_RemoveMember(t *testing.T) {
	p := NewRedisPresence(presenceTestRedis(t))
	ctx := context.Background()

	if err := p.AddMember(ctx, "doc1", 1, "alice", time.Minute); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if err := p.RemoveMember(ctx, "doc1", 1); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	members, err := p.GetAliveMembersWithNames(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetAliveMembersWithNames() error = %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("members = %+v, want empty", members)
	}
}

func TestPresence_Cursor(t *testing.T) {
	p := NewRedisPresence(presenceTestRedis(t))
	ctx := context.Background()

	payload := []byte(`{"index":3,"length":0}`)
	if err := p.SetCursor(ctx, "doc1", 1, payload, time.Minute); err != nil {
		t.Fatalf("SetCursor() error = %v", err)
	}
	got, err := p.GetCursor(ctx, "doc1", 1)
	if err != nil {
		t.Fatalf("GetCursor() error = %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("GetCursor() = %s, want %s", got, payload)
	}
}

func TestPresence_GetDocuments(t *testing.T) {
	p := NewRedisPresence(presenceTestRedis(t))
	ctx := context.Background()

	if err := p.AddMember(ctx, "doc1", 1, "alice", time.Minute); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if err := p.AddMember(ctx, "doc2", 2, "bob", time.Minute); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	docs, err := p.GetDocuments(ctx)
	if err != nil {
		t.Fatalf("GetDocuments() error = %v", err)
	}
	found := map[string]bool{}
	for _, d := range docs {
		found[d] = true
	}
	// names 表的键不能混进来
	if !found["doc1"] || !found["doc2"] || len(docs) != 2 {
		t.Fatalf("GetDocuments() = %v, want [doc1 doc2]", docs)
	}
}
