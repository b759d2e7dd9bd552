package users

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"github.com/couchbaselabs/identitystore/internal/database"
	"go.uber.org/zap"
)

type sequenceIDProvider struct {
	ids   []string
	index int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	id := p.ids[p.index%len(p.ids)]
	p.index++
	return id, nil
}

type storeFixture struct {
	store     *UserStore
	documents *database.DocumentBucket
	clock     time.Time
}

func newStoreFixture(t *testing.T, refreshMirrorKeys bool) *storeFixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "identity.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	documents, err := database.NewDocumentBucket(database.DocumentBucketConfig{Database: db, Name: "identity"})
	if err != nil {
		t.Fatalf("failed to build document bucket: %v", err)
	}
	wrapped, err := bucket.NewThrowableBucket(bucket.Config{Bucket: documents})
	if err != nil {
		t.Fatalf("failed to wrap bucket: %v", err)
	}
	fixture := &storeFixture{documents: documents, clock: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	store, err := NewUserStore(UserStoreConfig{
		Bucket:            wrapped,
		IDProvider:        &sequenceIDProvider{ids: []string{"generated-1", "generated-2"}},
		Clock:             func() time.Time { return fixture.clock },
		RefreshMirrorKeys: refreshMirrorKeys,
	})
	if err != nil {
		t.Fatalf("failed to build user store: %v", err)
	}
	fixture.store = store
	return fixture
}

// rawKey reads key straight from the document bucket.
func (f *storeFixture) rawKey(t *testing.T, key string) (json.RawMessage, bool) {
	t.Helper()
	result, err := f.documents.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("raw get %q failed: %v", key, err)
	}
	switch result.Status {
	case bucket.StatusSuccess:
		return result.Value, true
	case bucket.StatusKeyNotFound:
		return nil, false
	default:
		t.Fatalf("raw get %q returned %s", key, result.Status)
		return nil, false
	}
}

func (f *storeFixture) mirrorTarget(t *testing.T, key string) string {
	t.Helper()
	raw, found := f.rawKey(t, key)
	if !found {
		t.Fatalf("expected key %q to exist", key)
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		t.Fatalf("key %q does not hold an id string: %v", key, err)
	}
	return id
}

func (f *storeFixture) mustCreate(t *testing.T, user *User) *User {
	t.Helper()
	if err := f.store.Create(context.Background(), user); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return user
}
