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

// Package logo manages the lifetime of an uploaded logo image.
// A Manager holds at most one live Handle and releases it exactly once,
// when it is replaced, cleared or disposed.
package logo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	// ErrAssetRead is returned when an upload cannot be turned into a usable image.
	ErrAssetRead = errors.New("logo: asset read failure")
	ErrDisposed  = errors.New("logo: manager disposed")
)

// File is a raw upload as supplied by the surrounding UI.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Asset is a decoded logo owned by a Manager. It is read-only for everyone else.
type Asset struct {
	handle Handle

	DisplayName string
	ByteSize    int64
	ContentType string
	Image       image.Image
	// Oversize is set when ByteSize exceeds the manager's soft limit.
	Oversize bool
}

// Ref returns the display reference of the asset's handle.
func (a *Asset) Ref() string {
	return a.handle.Ref()
}

// Manager owns the single active logo handle.
type Manager struct {
	store     Store
	softLimit int64
	logger    *zap.Logger

	mu       sync.Mutex
	current  *Asset
	disposed bool
}

// NewManager creates a Manager backed by store. softLimit <= 0 disables the advisory ceiling.
func NewManager(store Store, softLimit int64, logger *zap.Logger) *Manager {
	return &Manager{
		store:     store,
		softLimit: softLimit,
		logger:    logger,
	}
}

// SetLogo decodes f and makes it the active logo, releasing the previous one first.
// If f cannot be read or decoded the previous logo stays active. If the store
// then fails to create a handle, the previous logo is already released and no
// logo is active.
func (m *Manager) SetLogo(f File) (*Asset, error) {
	if f.Body == nil {
		return nil, fmt.Errorf("%w: no file body", ErrAssetRead)
	}
	data, err := io.ReadAll(f.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssetRead, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrAssetRead)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		m.logger.Warn("Failed to decode logo",
			zap.String("name", f.Name),
			zap.String("content_type", f.ContentType),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrAssetRead, err)
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "image/" + format
	}

	asset := &Asset{
		DisplayName: f.Name,
		ByteSize:    int64(len(data)),
		ContentType: contentType,
		Image:       img,
		Oversize:    m.softLimit > 0 && int64(len(data)) > m.softLimit,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return nil, ErrDisposed
	}

	m.releaseLocked()

	handle, err := m.store.Create(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssetRead, err)
	}
	asset.handle = handle
	m.current = asset

	if asset.Oversize {
		m.logger.Warn("Logo exceeds soft size limit",
			zap.String("name", f.Name),
			zap.Int64("bytes", asset.ByteSize),
			zap.Int64("soft_limit", m.softLimit),
		)
	}
	m.logger.Debug("Logo set",
		zap.String("ref", handle.Ref()),
		zap.String("name", f.Name),
		zap.String("format", format),
		zap.String("dimensions", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy())),
	)

	return asset, nil
}

// Current returns the active logo, or nil.
func (m *Manager) Current() *Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Clear releases the active logo, if any.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

// Dispose releases the active logo and rejects further uploads. It is idempotent.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	m.releaseLocked()
	m.disposed = true
}

func (m *Manager) releaseLocked() {
	if m.current == nil {
		return
	}
	ref := m.current.handle.Ref()
	if err := m.current.handle.Release(); err != nil {
		m.logger.Warn("Failed to release logo handle", zap.String("ref", ref), zap.Error(err))
	} else {
		m.logger.Debug("Logo released", zap.String("ref", ref))
	}
	m.current = nil
}
