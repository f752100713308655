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
	"sync"

	"github.com/tfsfuse/tfs/config"
)

// inode is the concrete descriptor backing both files and the single
// root directory. Unlike the reference design's -1-sentinel BlockIdx
// array, unallocated slots are represented with option[BlockIdx]; see
// option.go.
//
// Callers that mutate any field below must hold mu for writing; callers
// that read size or the block slots must hold at least a read lock.
// inode_get in spec.md section 4.3 deliberately does not take the lock
// itself -- that responsibility belongs to the caller, same as here.
type inode struct {
	mu       sync.RWMutex
	kind     Kind
	size     int64
	direct   []option[BlockIdx]
	indirect option[BlockIdx]
}

// inodeTable is the fixed-capacity array of inode slots plus the
// allocator that owns their FREE/TAKEN bookkeeping.
type inodeTable struct {
	alloc  *allocTable
	blocks *blockStore
	cfg    config.Params
	nodes  []*inode
}

func newInodeTable(cfg config.Params, blocks *blockStore) *inodeTable {
	return &inodeTable{
		alloc:  newAllocTable(cfg.InodeTableSize, cfg.Delay, cfg.BlockSize),
		blocks: blocks,
		cfg:    cfg,
		nodes:  make([]*inode, cfg.InodeTableSize),
	}
}

// create allocates an inode slot and initializes it per spec.md section
// 4.3: a Directory gets direct[0] allocated and zeroed to all-free
// directory entries; a File gets every slot left unallocated. On
// failure to allocate the directory's first block, the partially
// claimed inode slot is returned to FREE before returning the error,
// matching the reference's rollback-before-failure discipline.
func (t *inodeTable) create(kind Kind) (InodeNum, error) {
	idx, ok := t.alloc.alloc()
	if !ok {
		return 0, ErrNoFreeInode
	}

	n := &inode{
		kind:   kind,
		direct: make([]option[BlockIdx], t.cfg.DirectBlocks),
	}

	if kind == Directory {
		blk, err := t.blocks.allocBlock()
		if err != nil {
			t.alloc.free(idx)
			return 0, err
		}
		b, _ := t.blocks.get(blk)
		initDirBlock(b, t.cfg.MaxFileName)
		n.direct[0] = some(blk)
		n.size = int64(t.cfg.BlockSize)
	}

	t.nodes[idx] = n
	return InodeNum(idx), nil
}

// get returns a borrow of the inode record without taking its lock.
func (t *inodeTable) get(n InodeNum) (*inode, bool) {
	insertDelay(t.alloc.delay)

	if n < 0 || int(n) >= len(t.nodes) {
		return nil, false
	}
	if !t.alloc.isTaken(int(n)) {
		return nil, false
	}
	return t.nodes[n], true
}

// delete releases every block n owns via releaseAllBlocks, then marks n
// FREE and drops the reference to the inode struct. Deletion of a
// Directory inode is not exercised by the public façade (spec.md
// section 4.3) but is implemented for completeness, e.g. for a failed
// create-then-link rollback.
func (t *inodeTable) delete(n InodeNum) error {
	nd, ok := t.get(n)
	if !ok {
		return ErrNotFound
	}

	nd.mu.Lock()
	releaseAllBlocks(nd, t.blocks, t.cfg)
	nd.mu.Unlock()

	t.alloc.free(int(n))
	t.nodes[n] = nil
	return nil
}
