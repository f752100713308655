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
	"encoding/binary"

	"github.com/tfsfuse/tfs/config"
)

// A directory entry occupies maxFileName bytes of name followed by a
// 4-byte little-endian inumber, matching dirEntrySize in config.go.
// inumber == -1 marks the slot free, per spec.md section 3.
const freeDirEntry int32 = -1

func dirEntrySize(maxFileName int) int {
	return maxFileName + 4
}

// initDirBlock marks every slot in a freshly allocated directory block
// free, the Go equivalent of the reference's memset-to--1 on the
// inumber field of each dir_entry_t.
func initDirBlock(b []byte, maxFileName int) {
	entrySize := dirEntrySize(maxFileName)
	for off := 0; off+entrySize <= len(b); off += entrySize {
		binary.LittleEndian.PutUint32(b[off+maxFileName:off+entrySize], uint32(freeDirEntry))
	}
}

func readDirEntry(b []byte, off, maxFileName int) (name string, inum int32) {
	raw := b[off : off+maxFileName]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	name = string(raw[:n])
	inum = int32(binary.LittleEndian.Uint32(b[off+maxFileName : off+maxFileName+4]))
	return name, inum
}

func writeDirEntry(b []byte, off int, name string, inum int32, maxFileName int) {
	entry := b[off : off+maxFileName+4]
	for i := range entry[:maxFileName] {
		entry[i] = 0
	}
	truncated := name
	if len(truncated) > maxFileName-1 {
		truncated = truncated[:maxFileName-1]
	}
	copy(entry[:maxFileName], truncated)
	binary.LittleEndian.PutUint32(entry[maxFileName:maxFileName+4], uint32(inum))
}

// addDirEntry inserts {name, sub} into dir's first block. Per the
// REDESIGN FLAG resolving the directory race named in spec.md section
// 9, the parent directory's own write lock is held for the duration of
// the scan and insert -- original_source/fs/state.c's add_dir_entry
// leaves this unguarded, which this implementation does not reproduce.
func addDirEntry(dir *inode, blocks *blockStore, cfg config.Params, sub InodeNum, name string) error {
	if dir.kind != Directory {
		return ErrNotDirectory
	}
	if name == "" {
		return ErrInvalidPath
	}

	dir.mu.Lock()
	defer dir.mu.Unlock()

	blkIdx, ok := dir.direct[0].get()
	if !ok {
		return ErrNotDirectory
	}
	b, ok := blocks.get(blkIdx)
	if !ok {
		return ErrNotFound
	}

	entrySize := dirEntrySize(cfg.MaxFileName)
	for off := 0; off+entrySize <= len(b); off += entrySize {
		_, inum := readDirEntry(b, off, cfg.MaxFileName)
		if inum == freeDirEntry {
			writeDirEntry(b, off, name, int32(sub), cfg.MaxFileName)
			return nil
		}
	}
	return ErrDirFull
}

// findInDir scans dir's first block for name, returning the matching
// inumber or ErrNotFound.
func findInDir(dir *inode, blocks *blockStore, cfg config.Params, name string) (InodeNum, error) {
	if dir.kind != Directory {
		return 0, ErrNotDirectory
	}

	dir.mu.RLock()
	defer dir.mu.RUnlock()

	blkIdx, ok := dir.direct[0].get()
	if !ok {
		return 0, ErrNotFound
	}
	b, ok := blocks.get(blkIdx)
	if !ok {
		return 0, ErrNotFound
	}

	entrySize := dirEntrySize(cfg.MaxFileName)
	for off := 0; off+entrySize <= len(b); off += entrySize {
		entName, inum := readDirEntry(b, off, cfg.MaxFileName)
		if inum != freeDirEntry && entName == name {
			return InodeNum(inum), nil
		}
	}
	return 0, ErrNotFound
}
