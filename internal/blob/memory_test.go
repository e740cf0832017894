package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryPutGetHead(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if store.Driver() != DriverMemory {
		t.Fatalf("driver %s", store.Driver())
	}

	info, err := store.Put(ctx, "reports/a.json", strings.NewReader(`{"ok":true}`), PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"family": "volume"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "reports/a.json" || info.Size != int64(len(`{"ok":true}`)) {
		t.Fatalf("unexpected info: %+v", info)
	}

	head, err := store.Head(ctx, "reports/a.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "application/json" || head.Metadata["family"] != "volume" {
		t.Fatalf("unexpected head: %+v", head)
	}

	got, rc, err := store.Get(ctx, "reports/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got.Size != info.Size {
		t.Fatalf("size mismatch: %d vs %d", got.Size, info.Size)
	}
}

func TestMemoryPutRejectsExistingKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if _, err := store.Put(ctx, "k", strings.NewReader("one"), PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("two"), PutOptions{}); err == nil {
		t.Fatalf("expected create-only violation")
	}
}

func TestMemoryListPrefixOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	for _, key := range []string{"estimates/2/b.csv", "estimates/1/a.json", "other/x"} {
		if _, err := store.Put(ctx, key, strings.NewReader(key), PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "estimates/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "estimates/1/a.json" || infos[1].Key != "estimates/2/b.csv" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if _, err := store.Put(ctx, "k", strings.NewReader("v"), PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	existed, err := store.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("delete existing: %v existed=%v", err, existed)
	}
	existed, err = store.Delete(ctx, "k")
	if err != nil || existed {
		t.Fatalf("delete missing: %v existed=%v", err, existed)
	}
}

func TestMemoryPresignUnsupported(t *testing.T) {
	store := NewMemory()
	if _, err := store.PresignURL(context.Background(), "k", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestMemoryMetadataIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	meta := map[string]string{"family": "growth"}
	if _, err := store.Put(ctx, "k", strings.NewReader("v"), PutOptions{Metadata: meta}); err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["family"] = "mutated"
	head, err := store.Head(ctx, "k")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Metadata["family"] != "growth" {
		t.Fatalf("caller mutation leaked into stored metadata: %+v", head.Metadata)
	}
	head.Metadata["family"] = "mutated-again"
	again, _ := store.Head(ctx, "k")
	if again.Metadata["family"] != "growth" {
		t.Fatalf("returned metadata aliases stored metadata")
	}
}
