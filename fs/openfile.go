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

import "sync"

// openFileEntry is one slot of the open file table: an inumber, a
// cursor, and the handle's own mutex. Per spec.md section 9's resolved
// open question, this mutex serializes every operation on the handle --
// Read and Write hold it for their duration, not merely while touching
// the {inumber, offset} pair; Close takes it and releases it before
// returning the slot to the allocator.
type openFileEntry struct {
	mu      sync.Mutex
	inumber InodeNum
	offset  int64
}

type openFileTable struct {
	alloc   *allocTable
	entries []*openFileEntry
}

func newOpenFileTable(capacity, delayIterations, blockSize int) *openFileTable {
	entries := make([]*openFileEntry, capacity)
	for i := range entries {
		entries[i] = &openFileEntry{}
	}
	return &openFileTable{
		alloc:   newAllocTable(capacity, delayIterations, blockSize),
		entries: entries,
	}
}

// add allocates a handle bound to inumber at the given initial offset.
func (t *openFileTable) add(inumber InodeNum, offset int64) (Handle, error) {
	idx, ok := t.alloc.alloc()
	if !ok {
		return 0, ErrNoFreeHandle
	}
	e := t.entries[idx]
	e.inumber = inumber
	e.offset = offset
	return Handle(idx), nil
}

// remove releases h back to the allocator. The caller must not be
// holding e.mu when calling this, and must not use h again afterward.
func (t *openFileTable) remove(h Handle) error {
	if !t.validHandle(h) {
		return ErrInvalidHandle
	}
	t.alloc.free(int(h))
	return nil
}

// get returns a borrow of h's entry with its mutex already held; the
// caller must call Unlock exactly once, on every exit path, per
// spec.md section 4.6's get_open_file_entry contract.
func (t *openFileTable) get(h Handle) (*openFileEntry, error) {
	if !t.validHandle(h) {
		return nil, ErrInvalidHandle
	}
	e := t.entries[h]
	e.mu.Lock()
	return e, nil
}

func (t *openFileTable) validHandle(h Handle) bool {
	if h < 0 || int(h) >= len(t.entries) {
		return false
	}
	return t.alloc.isTaken(int(h))
}
