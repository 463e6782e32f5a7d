package service

import (
	"Parley/internal/api/dto"
	"Parley/internal/model"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteJoinLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	invite, err := f.invites.Create(ctx, "admin", &dto.CreateInviteReq{MaxUses: 2, Note: " welcome "})
	require.NoError(t, err)
	assert.Equal(t, "welcome", invite.Note)
	assert.Equal(t, 2, invite.UsesRemaining)

	for i := 0; i < 2; i++ {
		session, err := f.invites.Join(ctx, &dto.JoinReq{Code: invite.Code, UserID: fmt.Sprintf("u%d", i)})
		require.NoError(t, err)
		assert.Equal(t, model.RoleMember, session.Role)

		claims, err := f.issuer.ValidateToken(session.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(0), claims.TokenVersion)
	}

	_, err = f.invites.Join(ctx, &dto.JoinReq{Code: invite.Code, UserID: "late"})
	assert.ErrorIs(t, err, ErrInviteRevoked)

	list, err := f.invites.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Revoked)
	assert.Equal(t, 0, list[0].UsesRemaining)
	assert.Contains(t, f.publisher.types(), model.EventMemberJoined)
}

func TestInviteJoinExistingMemberKeepsUses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	invite, err := f.invites.Create(ctx, "admin", &dto.CreateInviteReq{MaxUses: 2})
	require.NoError(t, err)

	_, err = f.invites.Join(ctx, &dto.JoinReq{Code: invite.Code, UserID: "u1"})
	require.NoError(t, err)

	// 已是成员，校验邀请码但不再消耗次数
	session, err := f.invites.Join(ctx, &dto.JoinReq{Code: invite.Code, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, session.Role)

	list, err := f.invites.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].UsesRemaining)

	_, err = f.invites.Join(ctx, &dto.JoinReq{Code: "NOT-A-CODE", UserID: "u1"})
	assert.ErrorIs(t, err, ErrInviteNotFound)

	require.NoError(t, f.invites.Revoke(ctx, invite.Code))
	_, err = f.invites.Join(ctx, &dto.JoinReq{Code: invite.Code, UserID: "u1"})
	assert.ErrorIs(t, err, ErrInviteRevoked)
}

func TestInviteJoinCannotImpersonatePrivilegedUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.server.Claim(ctx, &dto.ClaimReq{UserID: "owner"})
	require.NoError(t, err)
	cfg, err := f.server.GetConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg.OwnerID)
	ownerID := *cfg.OwnerID

	_, err = f.invites.Join(ctx, &dto.JoinReq{Code: "NOT-A-CODE", UserID: ownerID})
	assert.Error(t, err)

	invite, err := f.invites.Create(ctx, "owner", &dto.CreateInviteReq{MaxUses: 5})
	require.NoError(t, err)
	session, err := f.invites.Join(ctx, &dto.JoinReq{Code: invite.Code, UserID: ownerID})
	assert.ErrorIs(t, err, UnauthorizedError)
	assert.Nil(t, session)

	list, err := f.invites.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].UsesRemaining)
}

func TestInviteJoinFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.invites.Join(ctx, &dto.JoinReq{Code: "NOPE1234", UserID: "u1"})
	assert.ErrorIs(t, err, ErrInviteNotFound)

	invite, err := f.invites.Create(ctx, "admin", &dto.CreateInviteReq{MaxUses: 5})
	require.NoError(t, err)
	require.NoError(t, f.invites.Revoke(ctx, invite.Code))
	_, err = f.invites.Join(ctx, &dto.JoinReq{Code: invite.Code, UserID: "u1"})
	assert.ErrorIs(t, err, ErrInviteRevoked)

	assert.ErrorIs(t, f.invites.Revoke(ctx, "NOPE1234"), ErrInviteNotFound)

	require.NoError(t, f.server.Ban(ctx, "admin", "bad", &dto.BanReq{Reason: "spam"}))
	fresh, err := f.invites.Create(ctx, "admin", &dto.CreateInviteReq{MaxUses: 5})
	require.NoError(t, err)
	_, err = f.invites.Join(ctx, &dto.JoinReq{Code: fresh.Code, UserID: "bad"})
	assert.ErrorIs(t, err, ErrUserBan)
}

func TestInviteCodeCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	invite, err := f.invites.Create(ctx, "admin", &dto.CreateInviteReq{MaxUses: 1})
	require.NoError(t, err)

	_, err = f.invites.Join(ctx, &dto.JoinReq{Code: " " + strings.ToLower(invite.Code) + " ", UserID: "u1"})
	require.NoError(t, err)
}
