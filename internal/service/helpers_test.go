package service

import (
	"Parley/internal/api/config"
	"Parley/internal/model"
	"Parley/internal/pkg/rowstore"
	"Parley/internal/pkg/security"
	"Parley/internal/repository"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(model.Event); ok {
		p.events = append(p.events, e)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store      rowstore.Store
	publisher  *recordingPublisher
	issuer     *security.TokenIssuer
	messages   MessageService
	invites    InviteService
	server     ServerService
	moderation ModerationService
}

var testDefaults = config.ServerDefaults{Name: "Parley", MaxUploadBytes: 1 << 20, MaxMessageLength: 20}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := rowstore.NewMemoryStore()
	pub := &recordingPublisher{}
	issuer := security.NewTokenIssuer(config.JWTConfig{Secret: "test", ExpireHours: 1})

	messageRepo := repository.NewMessageRepo(store)
	configRepo := repository.NewServerConfigRepo(store)
	roleRepo := repository.NewRoleRepo(store)
	banRepo := repository.NewBanRepo(store)

	f := &fixture{
		store:      store,
		publisher:  pub,
		issuer:     issuer,
		messages:   NewMessageService(messageRepo, nil, pub, testDefaults),
		invites:    NewInviteService(repository.NewInviteRepo(store), configRepo, roleRepo, banRepo, issuer, pub),
		server:     NewServerService(configRepo, roleRepo, banRepo, issuer, pub, testDefaults),
		moderation: NewModerationService(repository.NewReportRepo(store), messageRepo, nil, pub, 1000),
	}
	_, err := f.server.EnsureConfig(context.Background())
	require.NoError(t, err)
	return f
}

func mustClaims(t *testing.T, f *fixture, userID, role string) *security.UserClaims {
	t.Helper()
	token, err := f.issuer.GenerateToken(userID, role, 0)
	require.NoError(t, err)
	claims, err := f.issuer.ValidateToken(token)
	require.NoError(t, err)
	return claims
}
