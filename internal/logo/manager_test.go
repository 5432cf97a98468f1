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
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// spyStore records every create and release so tests can check ordering and counts.
type spyStore struct {
	mu       sync.Mutex
	next     int
	events   []string
	releases map[string]int
	// failAfter makes every Create after the first failAfter calls fail; zero never fails.
	failAfter int
}

func newSpyStore() *spyStore {
	return &spyStore{releases: make(map[string]int)}
}

func (s *spyStore) Create(data []byte, contentType string) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && s.next >= s.failAfter {
		s.events = append(s.events, "create failed")
		return nil, errors.New("store full")
	}
	s.next++
	ref := fmt.Sprintf("spy:%d", s.next)
	s.events = append(s.events, "create "+ref)
	return &spyHandle{store: s, ref: ref}, nil
}

func (s *spyStore) record(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases[ref]++
	s.events = append(s.events, "release "+ref)
}

type spyHandle struct {
	store *spyStore
	ref   string
}

func (h *spyHandle) Ref() string { return h.ref }

func (h *spyHandle) Release() error {
	h.store.record(h.ref)
	return nil
}

func pngFile(t *testing.T, name string, w, h int) File {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{0xff, 0, 0, 0xff})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return File{Name: name, ContentType: "image/png", Body: &buf}
}

func TestSetLogoReplacesAndReleasesOnce(t *testing.T) {
	store := newSpyStore()
	m := NewManager(store, 0, zap.NewNop())

	a, err := m.SetLogo(pngFile(t, "a.png", 4, 4))
	if err != nil {
		t.Fatalf("SetLogo(a) error = %v", err)
	}
	b, err := m.SetLogo(pngFile(t, "b.png", 8, 8))
	if err != nil {
		t.Fatalf("SetLogo(b) error = %v", err)
	}

	want := []string{"create spy:1", "release spy:1", "create spy:2"}
	if strings.Join(store.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", store.events, want)
	}
	if store.releases[a.Ref()] != 1 {
		t.Errorf("handle %s released %d times, want 1", a.Ref(), store.releases[a.Ref()])
	}
	if store.releases[b.Ref()] != 0 {
		t.Errorf("active handle %s released early", b.Ref())
	}
	if m.Current() != b {
		t.Error("Current() is not the latest asset")
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	store := newSpyStore()
	m := NewManager(store, 0, zap.NewNop())

	a, err := m.SetLogo(pngFile(t, "a.png", 4, 4))
	if err != nil {
		t.Fatalf("SetLogo() error = %v", err)
	}

	m.Dispose()
	m.Dispose()

	if got := store.releases[a.Ref()]; got != 1 {
		t.Errorf("handle released %d times after double Dispose, want 1", got)
	}
	if m.Current() != nil {
		t.Error("Current() should be nil after Dispose")
	}
	if _, err := m.SetLogo(pngFile(t, "late.png", 2, 2)); !errors.Is(err, ErrDisposed) {
		t.Errorf("SetLogo() after Dispose error = %v, want ErrDisposed", err)
	}
}

func TestClearThenDispose(t *testing.T) {
	store := newSpyStore()
	m := NewManager(store, 0, zap.NewNop())

	a, err := m.SetLogo(pngFile(t, "a.png", 4, 4))
	if err != nil {
		t.Fatalf("SetLogo() error = %v", err)
	}

	m.Clear()
	m.Clear()
	m.Dispose()

	if got := store.releases[a.Ref()]; got != 1 {
		t.Errorf("handle released %d times, want 1", got)
	}
}

func TestSetLogoReadFailureKeepsPrevious(t *testing.T) {
	tests := []struct {
		name string
		file File
	}{
		{"nil body", File{Name: "nil"}},
		{"empty body", File{Name: "empty", Body: strings.NewReader("")}},
		{"not an image", File{Name: "notes.txt", ContentType: "image/png", Body: strings.NewReader("hello")}},
		{"truncated png", File{Name: "cut.png", Body: strings.NewReader("\x89PNG\r\n\x1a\n\x00\x00")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newSpyStore()
			m := NewManager(store, 0, zap.NewNop())
			prev, err := m.SetLogo(pngFile(t, "ok.png", 4, 4))
			if err != nil {
				t.Fatalf("SetLogo() error = %v", err)
			}

			if _, err := m.SetLogo(tt.file); !errors.Is(err, ErrAssetRead) {
				t.Fatalf("SetLogo() error = %v, want ErrAssetRead", err)
			}
			if m.Current() != prev {
				t.Error("failed upload replaced the active logo")
			}
			if store.releases[prev.Ref()] != 0 {
				t.Error("failed upload released the active logo")
			}
		})
	}
}

func TestSetLogoSoftLimit(t *testing.T) {
	m := NewManager(newSpyStore(), 16, zap.NewNop())

	a, err := m.SetLogo(pngFile(t, "big.png", 32, 32))
	if err != nil {
		t.Fatalf("SetLogo() error = %v, oversize files must still be accepted", err)
	}
	if !a.Oversize {
		t.Errorf("Oversize = false for %d bytes over a 16 byte soft limit", a.ByteSize)
	}
}

func TestSetLogoDetectsContentType(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}

	m := NewManager(newSpyStore(), 0, zap.NewNop())
	a, err := m.SetLogo(File{Name: "photo", Body: &buf})
	if err != nil {
		t.Fatalf("SetLogo() error = %v", err)
	}
	if a.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want image/jpeg", a.ContentType)
	}
	if a.Image.Bounds().Dx() != 8 {
		t.Errorf("decoded width = %d, want 8", a.Image.Bounds().Dx())
	}
}

func TestManagerWithMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, 0, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := m.SetLogo(pngFile(t, "logo.png", 4, 4)); err != nil {
			t.Fatalf("SetLogo() error = %v", err)
		}
		if got := store.Live(); got != 1 {
			t.Fatalf("Live() = %d after upload %d, want 1", got, i+1)
		}
	}

	ref := m.Current().Ref()
	if _, _, err := store.Open(ref); err != nil {
		t.Errorf("Open(%q) error = %v", ref, err)
	}

	m.Dispose()
	if got := store.Live(); got != 0 {
		t.Errorf("Live() = %d after Dispose, want 0", got)
	}
	if _, _, err := store.Open(ref); !errors.Is(err, ErrUnknown) {
		t.Errorf("Open() after Dispose error = %v, want ErrUnknown", err)
	}
}

func TestSetLogoStoreFailureLeavesNoLogo(t *testing.T) {
	store := newSpyStore()
	store.failAfter = 1
	m := NewManager(store, 0, zap.NewNop())

	a, err := m.SetLogo(pngFile(t, "a.png", 4, 4))
	if err != nil {
		t.Fatalf("SetLogo(a) error = %v", err)
	}
	if _, err := m.SetLogo(pngFile(t, "b.png", 4, 4)); !errors.Is(err, ErrAssetRead) {
		t.Fatalf("SetLogo(b) error = %v, want ErrAssetRead", err)
	}

	want := []string{"create spy:1", "release spy:1", "create failed"}
	if strings.Join(store.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", store.events, want)
	}
	if m.Current() != nil {
		t.Error("Current() still returns the released logo")
	}

	// Nothing left to release.
	m.Dispose()
	if store.releases[a.Ref()] != 1 {
		t.Errorf("handle %s released %d times, want 1", a.Ref(), store.releases[a.Ref()])
	}
}
