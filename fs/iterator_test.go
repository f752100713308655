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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfsfuse/tfs/config"
)

// TestIteratorCrossesIntoIndirectRegion exercises the REDESIGN FLAG fix:
// positions at and beyond DirectBlocks must land in distinct indirect
// slots addressed by array index, never by a mis-scaled byte offset.
func TestIteratorCrossesIntoIndirectRegion(t *testing.T) {
	cfg := config.Default()
	cfg.DirectBlocks = 2
	cfg.BlockSize = 64
	cfg.DataBlocks = 16

	blocks := newBlockStore(cfg.DataBlocks, cfg.BlockSize, 0)
	nd := &inode{kind: File, direct: make([]option[BlockIdx], cfg.DirectBlocks)}

	var seen []BlockIdx
	err := iterateBlocks(nd, blocks, cfg, 0, 4, true, func(i int, blk BlockIdx, content []byte) error {
		seen = append(seen, blk)
		content[0] = byte(i + 1)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 4)

	// All four resolved blocks must be distinct -- a pointer-advance bug
	// would alias indirect slots 2 and 3 onto overlapping byte ranges.
	unique := map[BlockIdx]bool{}
	for _, b := range seen {
		unique[b] = true
	}
	assert.Len(t, unique, 4)

	indirectBlk, ok := nd.indirect.get()
	require.True(t, ok)
	ib, ok := blocks.get(indirectBlk)
	require.True(t, ok)

	slot0, ok := (indirectSlot{block: ib, pos: 0}).get()
	require.True(t, ok)
	slot1, ok := (indirectSlot{block: ib, pos: 1}).get()
	require.True(t, ok)
	assert.NotEqual(t, slot0, slot1)
}

func TestIteratorReadOnlyNeverAllocates(t *testing.T) {
	cfg := config.Default()
	cfg.DirectBlocks = 2
	cfg.BlockSize = 64
	cfg.DataBlocks = 16

	blocks := newBlockStore(cfg.DataBlocks, cfg.BlockSize, 0)
	nd := &inode{kind: File, direct: make([]option[BlockIdx], cfg.DirectBlocks)}

	err := iterateBlocks(nd, blocks, cfg, 0, 1, false, func(i int, blk BlockIdx, content []byte) error {
		t.Fatal("visit should not be called for an unallocated slot in read mode")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, ok := nd.direct[0].get()
	assert.False(t, ok, "read mode must not allocate the missing slot")
}
