// Package kvtest provides kv.Store doubles for tests.
package kvtest

import (
	"context"
	"errors"
	"sync"

	"github.com/mind-engage/mindengage-quiz/internal/kv"
)

// ErrQuota mimics a browser-style quota/permission failure.
var ErrQuota = errors.New("kvtest: quota exceeded")

// Faulty wraps a memory store; writes and reads can be switched to fail.
type Faulty struct {
	kv.Store

	mu         sync.Mutex
	failWrites bool
	failReads  bool
	writes     int
}

func NewFaulty() *Faulty { return &Faulty{Store: kv.NewMemory()} }

func (f *Faulty) FailWrites(b bool) { f.mu.Lock(); f.failWrites = b; f.mu.Unlock() }
func (f *Faulty) FailReads(b bool)  { f.mu.Lock(); f.failReads = b; f.mu.Unlock() }

// Writes counts successful Set/Remove calls.
func (f *Faulty) Writes() int { f.mu.Lock(); defer f.mu.Unlock(); return f.writes }

func (f *Faulty) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	fail := f.failReads
	f.mu.Unlock()
	if fail {
		return "", ErrQuota
	}
	return f.Store.Get(ctx, key)
}

func (f *Faulty) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return ErrQuota
	}
	f.writes++
	return f.Store.Set(ctx, key, value)
}

func (f *Faulty) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return ErrQuota
	}
	f.writes++
	return f.Store.Remove(ctx, key)
}
