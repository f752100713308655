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

// Package fs implements an in-memory, single-directory, concurrent
// block-and-inode store: fixed-capacity allocation tables, two-level
// block addressing, per-inode reader/writer locking and an open-file
// table. See FileSystem for the operations it exposes.
package fs

import (
	"errors"
	"io"
	"log"
	"strings"

	"github.com/tfsfuse/tfs/config"
)

// FileSystem is the façade composing the allocator tables, the data
// block arena, the inode store, the directory layer and the open file
// table. Its zero value is not usable; construct one with
// NewFileSystem.
//
// LOCK ORDERING
//
// Acquired in this order, never the reverse:
//
//  1. The open-file-entry mutex for a given handle.
//  2. The RWMutex for a given inode.
//
// The allocator-table mutexes (inodes.alloc, blocks.alloc,
// handles.alloc) are leaf locks: they may be acquired while a handle
// mutex or an inode lock is held (Write allocates blocks under both),
// but none of them is held while acquiring any other lock.
//
// A single call never needs more than one allocator-table lock and one
// inode lock live at once, so there is no call path that acquires two
// inode locks or two handle locks simultaneously; cross-inode ordering
// does not arise in a single flat directory.
type FileSystem struct {
	cfg     config.Params
	inodes  *inodeTable
	blocks  *blockStore
	handles *openFileTable
	logger  *log.Logger
}

// NewFileSystem allocates the three fixed-capacity tables and the data
// arena described by cfg, and creates the root directory at
// RootDirInum, mirroring tfs_init in spec.md section 6.
func NewFileSystem(cfg config.Params) (*FileSystem, error) {
	blocks := newBlockStore(cfg.DataBlocks, cfg.BlockSize, cfg.Delay)
	inodes := newInodeTable(cfg, blocks)

	root, err := inodes.create(Directory)
	if err != nil {
		return nil, err
	}
	if root != RootDirInum {
		return nil, errors.New("tfs: root directory did not land at inode 0")
	}

	return &FileSystem{
		cfg:     cfg,
		inodes:  inodes,
		blocks:  blocks,
		handles: newOpenFileTable(cfg.MaxOpenFiles, cfg.Delay, cfg.BlockSize),
		logger:  newLogger(cfg.Debug),
	}, nil
}

// Destroy releases fs's state. Per spec.md section 3's Lifecycle note,
// inode RW locks and open-file mutexes have no destroy step of their
// own in Go -- the garbage collector reclaims them once fs is
// unreferenced, so there is no leak to acknowledge here the way the
// reference design must.
func (fsys *FileSystem) Destroy() error {
	return nil
}

func validatePath(path string) (string, error) {
	if len(path) <= 1 || path[0] != '/' {
		return "", ErrInvalidPath
	}
	name := path[1:]
	if strings.Contains(name, "/") {
		return "", ErrInvalidPath
	}
	return name, nil
}

// Lookup resolves path to an inumber. Per spec.md section 4.7, a valid
// path is non-empty, begins with /, and has at least one subsequent
// character; the core supports only single-component paths.
func (fsys *FileSystem) Lookup(path string) (InodeNum, error) {
	name, err := validatePath(path)
	if err != nil {
		return 0, err
	}

	root, ok := fsys.inodes.get(RootDirInum)
	if !ok {
		return 0, ErrNotFound
	}
	return findInDir(root, fsys.blocks, fsys.cfg, name)
}

// Stat returns inum's kind and current size. It exists for front ends
// such as fuseadapter that must answer attribute queries without a
// live handle; the core façade otherwise only exposes size indirectly,
// through Read's return count.
func (fsys *FileSystem) Stat(inum InodeNum) (Kind, int64, error) {
	nd, ok := fsys.inodes.get(inum)
	if !ok {
		return 0, 0, ErrNotFound
	}
	nd.mu.RLock()
	defer nd.mu.RUnlock()
	return nd.kind, nd.size, nil
}

// ListDir returns the names of every live entry in the root directory,
// for front ends implementing a directory listing (e.g. fuseadapter's
// ReadDir over the single root).
func (fsys *FileSystem) ListDir() ([]string, error) {
	root, ok := fsys.inodes.get(RootDirInum)
	if !ok {
		return nil, ErrNotFound
	}

	root.mu.RLock()
	defer root.mu.RUnlock()

	blkIdx, ok := root.direct[0].get()
	if !ok {
		return nil, ErrNotFound
	}
	b, ok := fsys.blocks.get(blkIdx)
	if !ok {
		return nil, ErrNotFound
	}

	var names []string
	entrySize := dirEntrySize(fsys.cfg.MaxFileName)
	for off := 0; off+entrySize <= len(b); off += entrySize {
		name, inum := readDirEntry(b, off, fsys.cfg.MaxFileName)
		if inum != freeDirEntry {
			names = append(names, name)
		}
	}
	return names, nil
}

// Open resolves path to a handle, creating a File inode if it is
// missing and flags has OCreat, truncating it first if flags has
// OTrunc, and seeking to its end if flags has OAppend. See spec.md
// section 4.7.
func (fsys *FileSystem) Open(path string, flags OpenFlags) (Handle, error) {
	name, err := validatePath(path)
	if err != nil {
		return 0, err
	}

	root, ok := fsys.inodes.get(RootDirInum)
	if !ok {
		return 0, ErrNotFound
	}

	inum, err := findInDir(root, fsys.blocks, fsys.cfg, name)
	switch {
	case err == nil:
		nd, ok := fsys.inodes.get(inum)
		if !ok {
			return 0, ErrNotFound
		}

		nd.mu.Lock()
		if flags.has(OTrunc) {
			truncateInode(nd, fsys.blocks, fsys.cfg)
		}
		offset := int64(0)
		if flags.has(OAppend) {
			offset = nd.size
		}
		nd.mu.Unlock()

		return fsys.handles.add(inum, offset)

	case errors.Is(err, ErrNotFound) && flags.has(OCreat):
		newInum, cerr := fsys.inodes.create(File)
		if cerr != nil {
			return 0, cerr
		}
		if derr := addDirEntry(root, fsys.blocks, fsys.cfg, newInum, name); derr != nil {
			if delErr := fsys.inodes.delete(newInum); delErr != nil {
				fsys.logger.Printf("open %q: rollback of inode %d failed: %v", path, newInum, delErr)
			}
			return 0, derr
		}
		return fsys.handles.add(newInum, 0)

	default:
		return 0, err
	}
}

// Seek repositions handle h's cursor to an explicit offset, for
// front ends such as fuseadapter whose callers issue random-access
// reads and writes rather than relying on the handle's own sequential
// cursor.
func (fsys *FileSystem) Seek(h Handle, offset int64) error {
	e, err := fsys.handles.get(h)
	if err != nil {
		return err
	}
	e.offset = offset
	e.mu.Unlock()
	return nil
}

// Close releases handle h's open-file entry.
func (fsys *FileSystem) Close(h Handle) error {
	e, err := fsys.handles.get(h)
	if err != nil {
		return err
	}
	e.mu.Unlock()
	return fsys.handles.remove(h)
}

// Read copies up to len(buf) bytes from handle h's current offset into
// buf, advancing the offset by the amount actually read. It never
// reads past the inode's size and never allocates a block, per the
// resolved open question in spec.md section 9.
func (fsys *FileSystem) Read(h Handle, buf []byte) (int, error) {
	e, err := fsys.handles.get(h)
	if err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	nd, ok := fsys.inodes.get(e.inumber)
	if !ok {
		return 0, ErrNotFound
	}

	nd.mu.RLock()
	n, rerr := readAt(nd, fsys.blocks, fsys.cfg, e.offset, buf)
	nd.mu.RUnlock()

	e.offset += int64(n)
	return n, rerr
}

// Write copies buf into handle h's inode starting at the handle's
// current offset, allocating blocks on demand, and advances the offset
// by the amount actually written.
func (fsys *FileSystem) Write(h Handle, buf []byte) (int, error) {
	e, err := fsys.handles.get(h)
	if err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	nd, ok := fsys.inodes.get(e.inumber)
	if !ok {
		return 0, ErrNotFound
	}

	nd.mu.Lock()
	n, werr := writeAt(nd, fsys.blocks, fsys.cfg, e.offset, buf)
	nd.mu.Unlock()

	e.offset += int64(n)
	return n, werr
}

// ExternalCopy reads the whole of srcPath and writes it to dst,
// realizing the "host byte sink" contract of spec.md sections 4.7 and
// 6 concretely as an io.Writer. Any step's failure closes the handle
// it opened before returning.
func (fsys *FileSystem) ExternalCopy(srcPath string, dst io.Writer) error {
	h, err := fsys.Open(srcPath, OStart)
	if err != nil {
		return err
	}

	e, err := fsys.handles.get(h)
	if err != nil {
		_ = fsys.Close(h)
		return err
	}
	inum := e.inumber
	e.mu.Unlock()

	nd, ok := fsys.inodes.get(inum)
	if !ok {
		_ = fsys.Close(h)
		return ErrNotFound
	}
	nd.mu.RLock()
	size := nd.size
	nd.mu.RUnlock()

	buf := make([]byte, size)
	n, rerr := fsys.Read(h, buf)
	if rerr != nil {
		_ = fsys.Close(h)
		return rerr
	}

	if _, werr := dst.Write(buf[:n]); werr != nil {
		_ = fsys.Close(h)
		return werr
	}

	return fsys.Close(h)
}
