package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

type fakeSnapshots struct {
	mu    sync.Mutex
	snaps map[string]domain.EventSnapshot
	err   error
}

func newFakeSnapshots(snaps ...domain.EventSnapshot) *fakeSnapshots {
	f := &fakeSnapshots{snaps: make(map[string]domain.EventSnapshot)}
	for _, s := range snaps {
		f.snaps[s.EventID] = s
	}
	return f
}

func (f *fakeSnapshots) Set(_ context.Context, snap domain.EventSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[snap.EventID] = snap
	return nil
}

func (f *fakeSnapshots) Get(_ context.Context, eventID string) (domain.EventSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.EventSnapshot{}, f.err
	}
	s, ok := f.snaps[eventID]
	if !ok {
		return domain.EventSnapshot{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSnapshots) Invalidate(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snaps, eventID)
	return nil
}

type fakeSettings struct {
	mu    sync.Mutex
	rows  map[string]domain.OperatorSettings
	err   error
	reads int
}

func (f *fakeSettings) Get(_ context.Context, operator string) (domain.OperatorSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return domain.OperatorSettings{}, f.err
	}
	s, ok := f.rows[operator]
	if !ok {
		return domain.OperatorSettings{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSettings) Upsert(_ context.Context, s domain.OperatorSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.Operator] = s
	return nil
}

func (f *fakeSettings) List(context.Context) ([]domain.OperatorSettings, error) {
	return nil, errors.New("not implemented")
}

type published struct {
	channel string
	payload []byte
}

type fakeBus struct {
	mu   sync.Mutex
	msgs []published
	ch   chan published
}

func newFakeBus() *fakeBus {
	return &fakeBus{ch: make(chan published, 16)}
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	f.msgs = append(f.msgs, published{channel, payload})
	f.mu.Unlock()
	f.ch <- published{channel, payload}
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBus) published() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

type fakeLocks struct {
	held map[string]bool
	mu   sync.Mutex
}

func (f *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, key)
	}, nil
}
