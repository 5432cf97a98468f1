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

package logo

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const refPrefix = "blob:"

var (
	ErrReleased = errors.New("logo: handle already released")
	ErrUnknown  = errors.New("logo: unknown reference")
)

// Handle is a live reference to stored logo bytes.
type Handle interface {
	// Ref is an opaque reference usable for display, e.g. "blob:<uuid>".
	Ref() string
	// Release frees the underlying resource. A second call returns ErrReleased.
	Release() error
}

// Store creates handles for raw logo bytes.
type Store interface {
	Create(data []byte, contentType string) (Handle, error)
}

type blob struct {
	data        []byte
	contentType string
}

// MemoryStore keeps logo bytes in memory, keyed by a random UUID.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewMemoryStore creates an empty in-memory blob registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]blob)}
}

// Create stores a copy of data and returns its handle.
func (s *MemoryStore) Create(data []byte, contentType string) (Handle, error) {
	id := uuid.NewString()
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.blobs[id] = blob{data: buf, contentType: contentType}
	s.mu.Unlock()

	return &memHandle{store: s, id: id}, nil
}

// Open returns the bytes and content type behind ref.
func (s *MemoryStore) Open(ref string) ([]byte, string, error) {
	id, ok := strings.CutPrefix(ref, refPrefix)
	if !ok {
		return nil, "", ErrUnknown
	}
	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, "", ErrUnknown
	}
	return b.data, b.contentType, nil
}

// Live reports how many handles have not been released.
func (s *MemoryStore) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func (s *MemoryStore) release(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return ErrReleased
	}
	delete(s.blobs, id)
	return nil
}

type memHandle struct {
	store *MemoryStore
	id    string
}

func (h *memHandle) Ref() string { return refPrefix + h.id }

func (h *memHandle) Release() error { return h.store.release(h.id) }
