package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/careteam/internal/testutil"
)

func TestProfileService_ResolveSession(t *testing.T) {
	fx := testutil.NewFixture()
	svc := NewProfileService(fx.Profiles, fx.Clock)
	ctx := context.Background()

	authID := uuid.New()
	_, err := svc.ResolveSession(ctx, authID)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	p, err := svc.Upsert(ctx, authID, UpsertProfileInput{FirstName: "Ana", LastName: "Kovač"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Kovač", p.Name())

	sess, err := svc.ResolveSession(ctx, authID)
	require.NoError(t, err)
	assert.Equal(t, authID, sess.AuthIdentityID)
	assert.Equal(t, p.ID, sess.ProfileID)
}

func TestProfileService_UpsertKeepsIdentity(t *testing.T) {
	fx := testutil.NewFixture()
	svc := NewProfileService(fx.Profiles, fx.Clock)
	ctx := context.Background()
	authID := uuid.New()

	first, err := svc.Upsert(ctx, authID, UpsertProfileInput{DisplayName: "Ana"})
	require.NoError(t, err)
	second, err := svc.Upsert(ctx, authID, UpsertProfileInput{DisplayName: "Ana K."})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := svc.Get(ctx, authID)
	require.NoError(t, err)
	assert.Equal(t, "Ana K.", got.DisplayName)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
