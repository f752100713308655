// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fs

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tfsfuse/tfs/config"
)

// testParams shrinks the defaults so the block/inode/handle tables are
// small enough that exhaustion scenarios (§8 scenario 6) are exercised
// quickly, while still leaving enough delay iterations to widen race
// windows for the concurrency scenarios.
func testParams() config.Params {
	p := config.Default()
	p.InodeTableSize = 16
	p.DataBlocks = 64
	p.MaxOpenFiles = 8
	p.Delay = 200
	return p
}

func newTestFS(t *testing.T) *FileSystem {
	t.Helper()
	fsys, err := NewFileSystem(testParams())
	require.NoError(t, err)
	return fsys
}

// Scenario 1: write then read back the same bytes through fresh handles.
func TestRoundTrip(t *testing.T) {
	fsys := newTestFS(t)

	h, err := fsys.Open("/f1", OCreat)
	require.NoError(t, err)

	payload := []byte("123456789")
	n, err := fsys.Write(h, payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	require.NoError(t, fsys.Close(h))

	h2, err := fsys.Open("/f1", OStart)
	require.NoError(t, err)

	buf := make([]byte, 9)
	n, err = fsys.Read(h2, buf)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, payload, buf)
	require.NoError(t, fsys.Close(h2))
}

// Scenario 4: opening a missing file without OCreat fails.
func TestOpenMissingWithoutCreateFails(t *testing.T) {
	fsys := newTestFS(t)

	_, err := fsys.Open("/x", OStart)
	assert.ErrorIs(t, err, ErrNotFound)
}

// After init, lookup("/anything") fails: nothing has been created yet.
func TestLookupAfterInitFails(t *testing.T) {
	fsys := newTestFS(t)

	_, err := fsys.Lookup("/anything")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupRejectsMalformedPaths(t *testing.T) {
	fsys := newTestFS(t)

	for _, p := range []string{"", "/", "noslash", "a"} {
		_, err := fsys.Lookup(p)
		assert.ErrorIsf(t, err, ErrInvalidPath, "path %q", p)
	}
}

// Scenario 3: OTrunc on an existing file with content yields a 0-byte read.
func TestTruncateYieldsEmptyRead(t *testing.T) {
	fsys := newTestFS(t)

	h, err := fsys.Open("/f1", OCreat)
	require.NoError(t, err)
	_, err = fsys.Write(h, make([]byte, 2048))
	require.NoError(t, err)
	require.NoError(t, fsys.Close(h))

	h2, err := fsys.Open("/f1", OTrunc)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := fsys.Read(h2, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, fsys.Close(h2))
}

func TestAppendSeeksToEnd(t *testing.T) {
	fsys := newTestFS(t)

	h, err := fsys.Open("/f1", OCreat)
	require.NoError(t, err)
	_, err = fsys.Write(h, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, fsys.Close(h))

	h2, err := fsys.Open("/f1", OAppend)
	require.NoError(t, err)
	_, err = fsys.Write(h2, []byte("world"))
	require.NoError(t, err)
	require.NoError(t, fsys.Close(h2))

	h3, err := fsys.Open("/f1", OStart)
	require.NoError(t, err)
	buf := make([]byte, 10)
	n, err := fsys.Read(h3, buf)
	require.NoError(t, err)
	require.NoError(t, fsys.Close(h3))

	assert.Equal(t, "helloworld", string(buf[:n]))
}

// Scenario 2: 20 concurrent threads race to create/truncate/write the
// same file; after all join, the file holds exactly one writer's
// payload in full.
func TestConcurrentCreateTruncateWrite(t *testing.T) {
	fsys := newTestFS(t)

	const writers = 20
	input := append([]byte("INPUT"), 0)

	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			h, err := fsys.Open("/f1", OCreat|OTrunc)
			if err != nil {
				return err
			}
			if _, err := fsys.Write(h, input); err != nil {
				return err
			}
			return fsys.Close(h)
		})
	}
	require.NoError(t, g.Wait())

	h, err := fsys.Open("/f1", OStart)
	require.NoError(t, err)
	buf := make([]byte, len(input))
	n, err := fsys.Read(h, buf)
	require.NoError(t, err)
	require.NoError(t, fsys.Close(h))

	assert.Equal(t, len(input), n)
	assert.Equal(t, input, buf)
}

// Scenario 5: two readers of the same file, each through its own handle,
// see byte-identical content. A handle's offset is part of that open
// file description, same as a POSIX fd -- two readers wanting independent
// cursors over the same file must each hold their own handle, exactly as
// spec.md section 4.6's get_open_file_entry contract implies by keying
// the offset off the handle, not the inode.
func TestConcurrentReadersSameFile(t *testing.T) {
	fsys := newTestFS(t)

	h, err := fsys.Open("/f1", OCreat)
	require.NoError(t, err)
	payload := []byte("the quick brown fox jumps over the lazy dog")
	n, err := fsys.Write(h, payload)
	require.NoError(t, err)
	require.NoError(t, fsys.Close(h))

	var g errgroup.Group
	bufs := make([][]byte, 2)
	for i := range bufs {
		i := i
		bufs[i] = make([]byte, n)
		g.Go(func() error {
			hr, err := fsys.Open("/f1", OStart)
			if err != nil {
				return err
			}
			defer fsys.Close(hr)
			_, err = fsys.Read(hr, bufs[i])
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, bufs[0], bufs[1])
}

// Scenario 6: far more concurrent openers than MAX_OPEN_FILES; at any
// instant the live handle count never exceeds the table's capacity, but
// the total number of successful opens across the run may exceed it.
func TestOpenRespectsHandleCapacity(t *testing.T) {
	cfg := testParams()
	fsys := newTestFS(t)

	const attempts = 200
	var g errgroup.Group
	var mu sync.Mutex
	succeeded, live, peak := 0, 0, 0

	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			h, err := fsys.Open("/f1", OCreat|OTrunc)
			if err != nil {
				return nil
			}
			mu.Lock()
			succeeded++
			live++
			if live > peak {
				peak = live
			}
			mu.Unlock()

			mu.Lock()
			live--
			mu.Unlock()
			return fsys.Close(h)
		})
	}
	require.NoError(t, g.Wait())

	assert.Greater(t, succeeded, 0)
	assert.LessOrEqual(t, peak, cfg.MaxOpenFiles)
}

func TestInodeSizeInvariant(t *testing.T) {
	cfg := testParams()
	fsys := newTestFS(t)

	h, err := fsys.Open("/f1", OCreat)
	require.NoError(t, err)
	defer fsys.Close(h)

	max := int64(cfg.DirectBlocks)*int64(cfg.BlockSize) + int64(cfg.BlockSize)*int64(cfg.BlockSize)/4

	inum, err := fsys.Lookup("/f1")
	require.NoError(t, err)
	fnode, ok := fsys.inodes.get(inum)
	require.True(t, ok)
	fnode.mu.RLock()
	size := fnode.size
	fnode.mu.RUnlock()
	assert.LessOrEqual(t, size, max)
}

func TestExternalCopy(t *testing.T) {
	fsys := newTestFS(t)

	h, err := fsys.Open("/f1", OCreat)
	require.NoError(t, err)
	payload := []byte("copy me please")
	_, err = fsys.Write(h, payload)
	require.NoError(t, err)
	require.NoError(t, fsys.Close(h))

	var buf sinkBuffer
	require.NoError(t, fsys.ExternalCopy("/f1", &buf))
	assert.Equal(t, payload, buf.data)
}

type sinkBuffer struct{ data []byte }

func (s *sinkBuffer) Write(p []byte) (int, error) {
	s.data = append(s.data, p...)
	return len(p), nil
}

func TestDirFullFailsCleanly(t *testing.T) {
	cfg := testParams()
	// The inode table must outlast the directory block, so that the first
	// failure is ErrDirFull rather than ErrNoFreeInode.
	cfg.InodeTableSize = cfg.MaxDirEntries() + 2
	fsys, err := NewFileSystem(cfg)
	require.NoError(t, err)

	max := cfg.MaxDirEntries()
	var opened int
	for i := 0; i < max+5; i++ {
		h, err := fsys.Open(fmt.Sprintf("/f%d", i), OCreat)
		if err != nil {
			assert.ErrorIs(t, err, ErrDirFull)
			break
		}
		opened++
		require.NoError(t, fsys.Close(h))
	}
	assert.LessOrEqual(t, opened, max)
}
