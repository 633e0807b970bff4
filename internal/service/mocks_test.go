package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/repository"
	"github.com/vedran77/careteam/internal/storage"
)

// MockStore is a testify mock of storage.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, r, size, contentType)
	return args.Error(0)
}

func (m *MockStore) Open(ctx context.Context, key string) (io.ReadCloser, *storage.Object, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	obj, _ := args.Get(1).(*storage.Object)
	return rc, obj, args.Error(2)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStore) SignedURL(ctx context.Context, key string, opts storage.URLOptions) (string, error) {
	args := m.Called(ctx, key, opts)
	return args.String(0), args.Error(1)
}

// recordingNotifier keeps every published event.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (n *recordingNotifier) Notify(_ context.Context, evt domain.ChangeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *recordingNotifier) all() []domain.ChangeEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.ChangeEvent(nil), n.events...)
}

// faultyMessageRepo injects failures into an otherwise working repository.
type faultyMessageRepo struct {
	repository.MessageRepository
	createAttachmentErr error
	failReplies         map[uuid.UUID]bool
}

var errInjected = errors.New("injected failure")

func (r *faultyMessageRepo) CreateAttachment(ctx context.Context, a *domain.MessageAttachment) error {
	if r.createAttachmentErr != nil {
		return r.createAttachmentErr
	}
	return r.MessageRepository.CreateAttachment(ctx, a)
}

func (r *faultyMessageRepo) ListReplies(ctx context.Context, parentID uuid.UUID) ([]domain.Message, error) {
	if r.failReplies[parentID] {
		return nil, errInjected
	}
	return r.MessageRepository.ListReplies(ctx, parentID)
}

// readGate holds the first read after a reaction toggle until released. It
// travels in the context so only the caller that carries it is held.
type readGate struct {
	armed   bool
	read    chan struct{}
	release chan struct{}
}

type readGateKey struct{}

func withReadGate(ctx context.Context, g *readGate) context.Context {
	return context.WithValue(ctx, readGateKey{}, g)
}

// gatedMessageRepo holds reads for callers carrying a readGate.
type gatedMessageRepo struct {
	repository.MessageRepository
}

func (r *gatedMessageRepo) ToggleReaction(ctx context.Context, reaction *domain.MessageReaction) (bool, error) {
	present, err := r.MessageRepository.ToggleReaction(ctx, reaction)
	if g, ok := ctx.Value(readGateKey{}).(*readGate); ok {
		g.armed = true
	}
	return present, err
}

func (r *gatedMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	msg, err := r.MessageRepository.GetByID(ctx, id)
	if g, ok := ctx.Value(readGateKey{}).(*readGate); ok && g.armed {
		g.armed = false
		close(g.read)
		<-g.release
	}
	return msg, err
}
