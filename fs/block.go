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

// blockStore is the contiguous byte arena backing every data block,
// paired with the allocTable that owns its free/taken bookkeeping. It
// performs no bounds enforcement past BlockSize on the slice it hands
// back, matching the data_block_get contract in spec.md section 4.2.
type blockStore struct {
	arena     []byte
	blockSize int
	alloc     *allocTable
}

func newBlockStore(capacity, blockSize, delayIterations int) *blockStore {
	return &blockStore{
		arena:     make([]byte, capacity*blockSize),
		blockSize: blockSize,
		alloc:     newAllocTable(capacity, delayIterations, blockSize),
	}
}

// get returns a borrow of the blockSize bytes at idx, or false if idx is
// out of range.
func (s *blockStore) get(idx BlockIdx) ([]byte, bool) {
	insertDelay(s.alloc.delay)

	start := int(idx) * s.blockSize
	if idx < 0 || start+s.blockSize > len(s.arena) {
		return nil, false
	}
	return s.arena[start : start+s.blockSize], true
}

func (s *blockStore) allocBlock() (BlockIdx, error) {
	idx, ok := s.alloc.alloc()
	if !ok {
		return 0, ErrNoFreeBlock
	}
	b, _ := s.get(BlockIdx(idx))
	clear(b)
	return BlockIdx(idx), nil
}

// freeBlock releases idx without resetting its contents, matching
// data_block_free in spec.md section 4.5: the slot is not zeroed, only
// marked FREE.
func (s *blockStore) freeBlock(idx BlockIdx) {
	s.alloc.free(int(idx))
}
