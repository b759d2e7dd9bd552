package roles

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"github.com/couchbaselabs/identitystore/internal/bucket/buckettest"
	"github.com/couchbaselabs/identitystore/internal/database"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRoleLifecycle(t *testing.T) {
	store := newSQLiteRoleStore(t)
	ctx := context.Background()
	role := NewRole("admin")

	require.NoError(t, store.Create(ctx, role))
	require.True(t, bucket.IsKeyExists(store.Create(ctx, role)))

	loaded, err := store.FindByID(ctx, role.ID)
	require.NoError(t, err)
	require.Equal(t, role, loaded)

	byName, err := store.FindByName(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, role.ID, byName.ID)

	role.Name = "administrators"
	require.NoError(t, store.Update(ctx, role))
	_, err = store.FindByName(ctx, "admin")
	require.True(t, bucket.IsKeyNotFound(err))

	require.NoError(t, store.Delete(ctx, role))
	_, err = store.FindByID(ctx, role.ID)
	require.True(t, bucket.IsKeyNotFound(err))
	require.True(t, bucket.IsKeyNotFound(store.Delete(ctx, role)))
}

func TestFindByNameIgnoresOtherDocumentTypes(t *testing.T) {
	store := newSQLiteRoleStore(t)
	ctx := context.Background()
	require.NoError(t, store.bucket.Create(ctx, "u1", map[string]string{"type": "user", "name": "admin"}))
	require.NoError(t, store.bucket.Create(ctx, "admin", "u1"))

	_, err := store.FindByName(ctx, "admin")
	require.True(t, bucket.IsKeyNotFound(err))
}

func TestUpdateMissingRoleRaisesKeyNotFound(t *testing.T) {
	store := newSQLiteRoleStore(t)
	err := store.Update(context.Background(), &Role{ID: "r-missing", Name: "ghost"})
	require.True(t, bucket.IsKeyNotFound(err))
}

func TestRoleStoreValidatesInput(t *testing.T) {
	store := newSQLiteRoleStore(t)
	ctx := context.Background()
	require.ErrorIs(t, store.Create(ctx, nil), ErrInvalidRole)
	require.ErrorIs(t, store.Create(ctx, &Role{ID: "r1"}), ErrInvalidName)
	require.ErrorIs(t, store.Delete(ctx, &Role{}), ErrInvalidRole)
	_, err := store.FindByName(ctx, " ")
	require.ErrorIs(t, err, ErrInvalidName)
	_, err = NewRoleStore(RoleStoreConfig{})
	require.ErrorIs(t, err, errMissingBucket)
}

func TestFindByNameIssuesTypedQuery(t *testing.T) {
	mocked := new(buckettest.MockBucket)
	store := newMockedRoleStore(t, mocked)
	ctx := context.Background()
	expected := bucket.NewQuery().Where("type", "role").Where("name", "admin").WithLimit(1)
	mocked.On("Query", ctx, expected).Return(bucket.QueryResult{
		Status: bucket.StatusSuccess,
		Rows:   []json.RawMessage{json.RawMessage(`{"type":"role","id":"r1","name":"admin"}`)},
	}, nil).Once()

	role, err := store.FindByName(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, &Role{Type: "role", ID: "r1", Name: "admin"}, role)
	mocked.AssertExpectations(t)
}

func TestFindByNameSurfacesQueryFailure(t *testing.T) {
	mocked := new(buckettest.MockBucket)
	store := newMockedRoleStore(t, mocked)
	mocked.On("Query", mock.Anything, mock.Anything).
		Return(bucket.QueryResult{Status: bucket.StatusTemporaryFailure}, nil).Once()

	_, err := store.FindByName(context.Background(), "admin")
	status, ok := bucket.StatusOf(err)
	require.True(t, ok)
	require.Equal(t, bucket.StatusTemporaryFailure, status)
}

func TestFindByIDOnMissingRole(t *testing.T) {
	mocked := new(buckettest.MockBucket)
	store := newMockedRoleStore(t, mocked)
	mocked.On("Get", mock.Anything, "r9").Return(buckettest.Status(bucket.StatusKeyNotFound), nil).Once()

	_, err := store.FindByID(context.Background(), "r9")
	var storeErr *bucket.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "r9", storeErr.Key)
	require.Equal(t, bucket.StatusKeyNotFound, storeErr.Status)
}

func TestNewRoleAssignsDistinctIds(t *testing.T) {
	first := NewRole(" admin ")
	second := NewRole("admin")
	require.Equal(t, "admin", first.Name)
	require.Equal(t, "role", first.Type)
	require.NotEqual(t, first.ID, second.ID)
}

func newSQLiteRoleStore(t *testing.T) *RoleStore {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "roles.db"), zap.NewNop())
	require.NoError(t, err)
	documents, err := database.NewDocumentBucket(database.DocumentBucketConfig{Database: db, Name: "identity"})
	require.NoError(t, err)
	wrapped, err := bucket.NewThrowableBucket(bucket.Config{Bucket: documents})
	require.NoError(t, err)
	store, err := NewRoleStore(RoleStoreConfig{Bucket: wrapped})
	require.NoError(t, err)
	return store
}

func newMockedRoleStore(t *testing.T, mocked *buckettest.MockBucket) *RoleStore {
	t.Helper()
	mocked.On("Name").Return("identity").Maybe()
	wrapped, err := bucket.NewThrowableBucket(bucket.Config{Bucket: mocked})
	require.NoError(t, err)
	store, err := NewRoleStore(RoleStoreConfig{Bucket: wrapped})
	require.NoError(t, err)
	return store
}

func TestFindByIDRejectsDocumentsOfOtherTypes(t *testing.T) {
	store := newSQLiteRoleStore(t)
	ctx := context.Background()
	require.NoError(t, store.bucket.Create(ctx, "u1", map[string]string{"type": "user", "id": "u1"}))
	require.NoError(t, store.bucket.Create(ctx, "alice", "u1"))

	for _, key := range []string{"u1", "alice"} {
		role, err := store.FindByID(ctx, key)
		require.Nil(t, role, key)
		require.True(t, bucket.IsKeyNotFound(err), key)
	}
}
