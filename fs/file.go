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

import "github.com/tfsfuse/tfs/config"

// writeAt copies buf into nd's blocks starting at offset, allocating
// blocks on demand, and returns the number of bytes written. The caller
// must hold nd's write lock for the whole call -- this is what resolves
// the relocking bug named in spec.md section 9: the lock is acquired
// once by the caller, not re-entered here per indirect hop.
//
// A partial failure (allocator exhaustion, unreachable indirect block)
// leaves already-copied bytes in place and nd.size reflects them, per
// spec.md section 7's no-rollback propagation rule.
func writeAt(nd *inode, blocks *blockStore, cfg config.Params, offset int64, buf []byte) (int, error) {
	blockSize := int64(cfg.BlockSize)
	maxBlocks := cfg.DirectBlocks + cfg.IndirectFanOut()
	maxBytes := int64(maxBlocks) * blockSize

	if offset >= maxBytes || len(buf) == 0 {
		return 0, nil
	}

	remaining := buf
	if offset+int64(len(remaining)) > maxBytes {
		remaining = remaining[:maxBytes-offset]
	}

	startBlock := int(offset / blockSize)
	endByte := offset + int64(len(remaining)) - 1
	endBlock := int(endByte/blockSize) + 1

	// A write starting past nd.size also allocates (zeroed) every block
	// between the old size and offset, so no position below the new size
	// is left unbacked.
	firstBlock := startBlock
	if sizeBlock := int(nd.size / blockSize); sizeBlock < firstBlock {
		firstBlock = sizeBlock
	}

	written := 0
	err := iterateBlocks(nd, blocks, cfg, firstBlock, endBlock, true, func(i int, blk BlockIdx, content []byte) error {
		if i < startBlock {
			return nil
		}
		blockOffset := 0
		if i == startBlock {
			blockOffset = int(offset % blockSize)
		}
		n := copy(content[blockOffset:], remaining[written:])
		written += n
		return nil
	})

	newSize := offset + int64(written)
	if written > 0 && newSize > nd.size {
		nd.size = newSize
	}
	return written, err
}

// readAt copies up to len(buf) bytes of nd's content starting at offset
// into buf, never reading past nd.size and never allocating -- the
// resolved open question in spec.md section 9: a read must not observe
// a hole, since to_read is bounded by size and size only ever reflects
// bytes already written through writeAt.
func readAt(nd *inode, blocks *blockStore, cfg config.Params, offset int64, buf []byte) (int, error) {
	toRead := nd.size - offset
	if toRead <= 0 {
		return 0, nil
	}
	if int64(len(buf)) < toRead {
		toRead = int64(len(buf))
	}
	if toRead == 0 {
		return 0, nil
	}

	blockSize := int64(cfg.BlockSize)
	startBlock := int(offset / blockSize)
	endByte := offset + toRead - 1
	endBlock := int(endByte/blockSize) + 1

	read := 0
	err := iterateBlocks(nd, blocks, cfg, startBlock, endBlock, false, func(i int, blk BlockIdx, content []byte) error {
		blockOffset := 0
		if i == startBlock {
			blockOffset = int(offset % blockSize)
		}
		remaining := int(toRead) - read
		src := content[blockOffset:]
		if len(src) > remaining {
			src = src[:remaining]
		}
		n := copy(buf[read:], src)
		read += n
		return nil
	})
	return read, err
}

// truncateInode releases every block nd owns and resets it to an empty
// File. The caller must hold nd's write lock. Unlike the bare
// data_block_free visitor (which per spec.md section 4.5 leaves the
// slot's stale value in place), truncation also clears nd's direct and
// indirect slots back to unallocated: leaving a stale slot pointing at
// a block the allocator now considers FREE would let a concurrently
// created, unrelated inode and this one alias the same block on their
// next write.
func truncateInode(nd *inode, blocks *blockStore, cfg config.Params) {
	releaseAllBlocks(nd, blocks, cfg)
	for i := range nd.direct {
		nd.direct[i] = none[BlockIdx]()
	}
	nd.indirect = none[BlockIdx]()
	nd.size = 0
}
