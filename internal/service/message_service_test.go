package service

import (
	"Parley/internal/api/dto"
	"Parley/internal/model"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageSendAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.messages.Send(ctx, "u1", "c1", &dto.SendMessageReq{Text: text})
		require.NoError(t, err)
	}

	page, err := f.messages.List(ctx, "c1", &dto.ListMessagesReq{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.Empty(t, page.NextCursor)
	assert.NotNil(t, page.Messages[0].Reactions)
	assert.Contains(t, f.publisher.types(), model.EventMessageCreated)

	_, err = f.messages.List(ctx, "c1", &dto.ListMessagesReq{Cursor: "%%%"})
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestMessageTextValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.messages.Send(ctx, "u1", "c1", &dto.SendMessageReq{Text: "   "})
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = f.messages.Send(ctx, "u1", "c1", &dto.SendMessageReq{Text: strings.Repeat("字", 21)})
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = f.messages.Send(ctx, "u1", "", &dto.SendMessageReq{Text: "hi"})
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = f.messages.Send(ctx, "u1", "c\x001", &dto.SendMessageReq{Text: "hi"})
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestMessageEditAndDeletePermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	msg, err := f.messages.Send(ctx, "u1", "c1", &dto.SendMessageReq{Text: "hello"})
	require.NoError(t, err)

	_, err = f.messages.Edit(ctx, "u2", "c1", msg.ID, &dto.EditMessageReq{Text: "hacked"})
	assert.ErrorIs(t, err, ErrMessageNotOwned)

	edited, err := f.messages.Edit(ctx, "u1", "c1", msg.ID, &dto.EditMessageReq{Text: "hello!"})
	require.NoError(t, err)
	assert.Equal(t, "hello!", edited.Text)
	assert.NotNil(t, edited.EditedAt)

	err = f.messages.Delete(ctx, "u2", model.RoleMember, "c1", msg.ID)
	assert.ErrorIs(t, err, UnauthorizedError)

	require.NoError(t, f.messages.Delete(ctx, "u2", model.RoleModerator, "c1", msg.ID))
	_, err = f.messages.Get(ctx, "c1", msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	err = f.messages.Delete(ctx, "u1", model.RoleMember, "c1", msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMessageReactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	msg, err := f.messages.Send(ctx, "u1", "c1", &dto.SendMessageReq{Text: "hello"})
	require.NoError(t, err)

	out, err := f.messages.ToggleReaction(ctx, "u2", "c1", msg.ID, ":+1:")
	require.NoError(t, err)
	require.Len(t, out.Reactions, 1)
	assert.Equal(t, 1, out.Reactions[0].Count)
	assert.Equal(t, []string{"u2"}, out.Reactions[0].Users)

	out, err = f.messages.ToggleReaction(ctx, "u2", "c1", msg.ID, ":+1:")
	require.NoError(t, err)
	assert.Empty(t, out.Reactions)

	_, err = f.messages.RemoveReaction(ctx, "u2", "c1", msg.ID, ":+1:")
	assert.ErrorIs(t, err, ErrActionNotApplied)

	_, err = f.messages.ToggleReaction(ctx, "u2", "c1", "missing", ":+1:")
	assert.ErrorIs(t, err, ErrActionNotApplied)
}

func TestMessageSearchDisabled(t *testing.T) {
	f := newFixture(t)
	_, err := f.messages.Search(context.Background(), "c1", &dto.SearchMessagesReq{Keyword: "x"})
	assert.ErrorIs(t, err, ErrSearchDisabled)
}
