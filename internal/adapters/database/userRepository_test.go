package database

import (
	"context"
	"testing"

	"newsdesk/internal/core/setting"
	"newsdesk/internal/core/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_FindByClientKey(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepositoryDatabase(setupTestDB(t))

	key := "u1"
	created, err := repo.Create(ctx, &user.User{Name: "A", Username: "alice", Email: "a@example.com", Password: "h", ClientKey: &key, AutoPublishEnabled: true})
	require.NoError(t, err)

	u, err := repo.FindByClientKey(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, created.ID, u.ID)
	assert.True(t, u.AutoPublishEnabled)

	u, err = repo.FindByClientKey(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = repo.FindByClientKey(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepository_SetAutoPublish(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepositoryDatabase(setupTestDB(t))

	created, err := repo.Create(ctx, &user.User{Name: "B", Username: "bob", Password: "h"})
	require.NoError(t, err)

	require.NoError(t, repo.SetAutoPublish(ctx, created.ID.String(), true))
	u, err := repo.FindByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.True(t, u.AutoPublishEnabled)

	err = repo.SetAutoPublish(ctx, "00000000-0000-0000-0000-000000000000", true)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserRepository_FindByUsernameOrEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepositoryDatabase(setupTestDB(t))

	_, err := repo.Create(ctx, &user.User{Name: "C", Username: "carol", Email: "c@example.com", Password: "h"})
	require.NoError(t, err)

	u, err := repo.FindByUsernameOrEmail(ctx, "other", "c@example.com")
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Username)

	_, err = repo.FindByUsernameOrEmail(ctx, "nobody", "")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestSettingRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingRepositoryDatabase(setupTestDB(t))

	_, ok, err := repo.Get(ctx, setting.KeyModerationPrompt)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, setting.KeyModerationPrompt, "v1 {{text}}"))
	require.NoError(t, repo.Set(ctx, setting.KeyModerationPrompt, "v2 {{text}}"))

	v, ok, err := repo.Get(ctx, setting.KeyModerationPrompt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2 {{text}}", v)
}
