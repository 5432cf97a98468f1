// Copyright (c) 2026 WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package session tracks studio sessions. Each session is one editing view:
// it owns a render pipeline and a logo manager and tears both down when it is
// deleted, expires, or the registry shuts down.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/logo"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/pipeline"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/qr"
)

var ErrNotFound = errors.New("session: not found")

// Options configures every session created by a Registry.
type Options struct {
	Defaults      pipeline.Request
	Scheduler     pipeline.Scheduler
	LogoSoftLimit int64

	// TTL evicts sessions idle for longer; zero disables expiry.
	TTL           time.Duration
	SweepInterval time.Duration
}

// Session is one editing view.
type Session struct {
	ID        string
	CreatedAt time.Time
	Pipeline  *pipeline.Pipeline
	Logos     *logo.Manager

	// logoMu keeps the manager and the pipeline agreeing on the active logo.
	logoMu    sync.Mutex
	lastSeen  atomic.Int64
	closeOnce sync.Once
}

// SetLogo uploads a new logo and points the pipeline at it. On failure the
// pipeline is pointed at whatever the manager still holds, which is nil when
// the previous logo was already released.
func (s *Session) SetLogo(f logo.File) (*logo.Asset, error) {
	s.logoMu.Lock()
	defer s.logoMu.Unlock()

	asset, err := s.Logos.SetLogo(f)
	if err != nil {
		if cur := s.Logos.Current(); cur != s.Pipeline.Snapshot().Request.Logo {
			s.Pipeline.UpdateLogo(cur)
		}
		return nil, err
	}
	s.Pipeline.UpdateLogo(asset)
	return asset, nil
}

// ClearLogo removes the logo from the pipeline and releases it.
func (s *Session) ClearLogo() {
	s.logoMu.Lock()
	defer s.logoMu.Unlock()

	s.Pipeline.UpdateLogo(nil)
	s.Logos.Clear()
}

// LastSeen is the time of the last lookup.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// Close tears the session down. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Pipeline.Close()
		s.Logos.Dispose()
	})
}

// Registry maps session ids to sessions.
type Registry struct {
	enc    qr.Encoder
	store  logo.Store
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(enc qr.Encoder, store logo.Store, logger *zap.Logger, opts Options) *Registry {
	if opts.Scheduler == nil {
		opts.Scheduler = pipeline.DeferredScheduler{}
	}
	return &Registry{
		enc:      enc,
		store:    store,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session and schedules its first render.
func (r *Registry) Create() (*Session, error) {
	id := uuid.NewString()
	log := r.logger.With(zap.String("session", id))

	p, err := pipeline.New(r.enc, r.opts.Scheduler, log, r.opts.Defaults)
	if err != nil {
		return nil, err
	}

	now := r.now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		Pipeline:  p,
		Logos:     logo.NewManager(r.store, r.opts.LogoSoftLimit, log),
	}
	s.touch(now)

	r.mu.Lock()
	r.sessions[id] = s
	count := len(r.sessions)
	r.mu.Unlock()

	log.Debug("Session created", zap.Int("active_sessions", count))
	return s, nil
}

// Get returns the session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Delete removes and closes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	r.logger.Debug("Session deleted", zap.String("session", id))
	return nil
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle longer than the TTL and returns how many it removed.
func (r *Registry) Sweep() int {
	if r.opts.TTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.opts.TTL)

	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		r.logger.Info("Expired idle sessions",
			zap.Int("expired", len(expired)),
			zap.Duration("ttl", r.opts.TTL),
		)
	}
	return len(expired)
}

// Run sweeps expired sessions until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context) error {
	defer r.CloseAll()

	if r.opts.TTL <= 0 || r.opts.SweepInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll closes and forgets every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if len(sessions) > 0 {
		r.logger.Info("Closed all sessions", zap.Int("count", len(sessions)))
	}
}
