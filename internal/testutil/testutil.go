// Package testutil wires in-memory backends for service and transport tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/repository/memory"
)

// StubClock is a settable clock.
type StubClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{t: t}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fixture is a seeded in-memory database.
type Fixture struct {
	Store     *memory.Store
	Profiles  *memory.ProfileRepo
	CareTeams *memory.CareTeamRepo
	Messages  *memory.MessageRepo
	Clock     *StubClock
}

func NewFixture() *Fixture {
	s := memory.NewStore()
	return &Fixture{
		Store:     s,
		Profiles:  memory.NewProfileRepo(s),
		CareTeams: memory.NewCareTeamRepo(s),
		Messages:  memory.NewMessageRepo(s),
		Clock:     NewStubClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
}

// Profile creates a profile and returns its session.
func (f *Fixture) Profile(t testing.TB, displayName string) domain.Session {
	t.Helper()
	now := f.Clock.Now()
	p := &domain.Profile{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.Profiles.Upsert(context.Background(), p); err != nil {
		t.Fatalf("seeding profile: %v", err)
	}
	return domain.Session{AuthIdentityID: p.UserID, ProfileID: p.ID}
}

// CareTeam creates a care team owned by owner with the given members.
func (f *Fixture) CareTeam(t testing.TB, name string, owner domain.Session, members ...domain.Session) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	now := f.Clock.Now()

	team := &domain.CareTeam{ID: uuid.New(), Name: name, CreatedBy: owner.ProfileID, CreatedAt: now, UpdatedAt: now}
	if err := f.CareTeams.Create(ctx, team); err != nil {
		t.Fatalf("seeding care team: %v", err)
	}
	add := func(s domain.Session, role string) {
		m := &domain.CareTeamMember{CareTeamID: team.ID, ProfileID: s.ProfileID, Role: role, JoinedAt: now}
		if err := f.CareTeams.AddMember(ctx, m); err != nil {
			t.Fatalf("seeding member: %v", err)
		}
	}
	add(owner, domain.RoleOwner)
	for _, m := range members {
		add(m, domain.RoleMember)
	}
	return team.ID
}
