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

// Package fuseadapter mounts an fs.FileSystem as a real, kernel-facing
// FUSE filesystem over github.com/jacobsa/fuse. Since the core store
// supports only a single flat directory, lookups, creates and directory
// opens under any parent other than the root return syscall.ENOTSUP;
// operations this adapter does not implement at all (MkDir among them)
// return ENOSYS through fuseutil.NotImplementedFileSystem.
package fuseadapter

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/tfsfuse/tfs/fs"
)

// fuse reserves inode ID 1 for the mount root; TFS's root directory
// (inumber 0) is mapped onto it. File inodes are offset by two so that
// inumber 0 never collides with a non-root fuse ID.
const inodeIDOffset = fuseops.InodeID(2)

func toFuseInode(n fs.InodeNum) fuseops.InodeID {
	if n == fs.RootDirInum {
		return fuseops.RootInodeID
	}
	return fuseops.InodeID(n) + inodeIDOffset
}

func fromFuseInode(id fuseops.InodeID) (fs.InodeNum, bool) {
	if id == fuseops.RootInodeID {
		return fs.RootDirInum, true
	}
	if id < inodeIDOffset {
		return 0, false
	}
	return fs.InodeNum(id - inodeIDOffset), true
}

// FileSystem adapts a *fs.FileSystem to fuseutil.FileSystem.
// Unimplemented operations fall back to
// fuseutil.NotImplementedFileSystem's ENOSYS, the same pattern the
// teacher's fs.fileSystem composes over in its older revisions.
type FileSystem struct {
	fuseutil.NotImplementedFileSystem

	core *fs.FileSystem

	mu            sync.Mutex
	lookupCounts  map[fuseops.InodeID]*lookupCount
	nextHandle    fuseops.HandleID
	fileHandles   map[fuseops.HandleID]fs.Handle
	dirHandleOpen map[fuseops.HandleID]bool
}

// New wraps core for mounting with github.com/jacobsa/fuse.
func New(core *fs.FileSystem) *FileSystem {
	return &FileSystem{
		core:          core,
		lookupCounts:  map[fuseops.InodeID]*lookupCount{fuseops.RootInodeID: {}},
		fileHandles:   map[fuseops.HandleID]fs.Handle{},
		dirHandleOpen: map[fuseops.HandleID]bool{},
	}
}

func attrsFor(kind fs.Kind, size int64) fuseops.InodeAttributes {
	mode := os.FileMode(0644)
	if kind == fs.Directory {
		mode = os.ModeDir | 0755
	}
	now := time.Unix(0, 0)
	return fuseops.InodeAttributes{
		Size:  uint64(size),
		Nlink: 1,
		Mode:  mode,
		Atime: now,
		Mtime: now,
		Ctime: now,
	}
}

func (a *FileSystem) touchLookupCount(id fuseops.InodeID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	lc, ok := a.lookupCounts[id]
	if !ok {
		lc = &lookupCount{}
		a.lookupCounts[id] = lc
	}
	lc.inc()
}

func (a *FileSystem) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	return nil
}

func (a *FileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	if op.Parent != fuseops.RootInodeID {
		return syscall.ENOTSUP
	}

	inum, err := a.core.Lookup("/" + op.Name)
	if err != nil {
		if errors.Is(err, fs.ErrNotFound) {
			return syscall.ENOENT
		}
		return syscall.EIO
	}

	kind, size, err := a.core.Stat(inum)
	if err != nil {
		return syscall.EIO
	}

	id := toFuseInode(inum)
	op.Entry = fuseops.ChildInodeEntry{
		Child:      id,
		Attributes: attrsFor(kind, size),
	}
	a.touchLookupCount(id)
	return nil
}

func (a *FileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	inum, ok := fromFuseInode(op.Inode)
	if !ok {
		return syscall.ENOENT
	}
	kind, size, err := a.core.Stat(inum)
	if err != nil {
		if errors.Is(err, fs.ErrNotFound) {
			return syscall.ENOENT
		}
		return syscall.EIO
	}
	op.Attributes = attrsFor(kind, size)
	return nil
}

func (a *FileSystem) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	lc, ok := a.lookupCounts[op.Inode]
	if !ok {
		return nil
	}
	if lc.dec(op.N) {
		delete(a.lookupCounts, op.Inode)
	}
	return nil
}

func (a *FileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	if op.Inode != fuseops.RootInodeID {
		return syscall.ENOTSUP
	}
	a.mu.Lock()
	op.Handle = a.nextHandle
	a.nextHandle++
	a.dirHandleOpen[op.Handle] = true
	a.mu.Unlock()
	return nil
}

func (a *FileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	a.mu.Lock()
	delete(a.dirHandleOpen, op.Handle)
	a.mu.Unlock()
	return nil
}

func (a *FileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	names, err := a.core.ListDir()
	if err != nil {
		return syscall.EIO
	}

	var entries []fuseutil.Dirent
	for i, name := range names {
		inum, lerr := a.core.Lookup("/" + name)
		if lerr != nil {
			continue
		}
		kind, _, serr := a.core.Stat(inum)
		if serr != nil {
			continue
		}
		entType := fuseutil.DT_File
		if kind == fs.Directory {
			entType = fuseutil.DT_Directory
		}
		entries = append(entries, fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  toFuseInode(inum),
			Name:   name,
			Type:   entType,
		})
	}

	if int(op.Offset) > len(entries) {
		return syscall.EINVAL
	}

	var n int
	for _, e := range entries[op.Offset:] {
		written := fuseutil.WriteDirent(op.Dst[n:], e)
		if written == 0 {
			break
		}
		n += written
	}
	op.BytesRead = n
	return nil
}

func openFlagsFor(op *fuseops.OpenFileOp) fs.OpenFlags {
	return fs.OStart
}

func (a *FileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	inum, ok := fromFuseInode(op.Inode)
	if !ok {
		return syscall.ENOENT
	}
	name, err := a.nameFor(inum)
	if err != nil {
		return syscall.EIO
	}

	h, err := a.core.Open("/"+name, openFlagsFor(op))
	if err != nil {
		return syscall.EIO
	}

	a.mu.Lock()
	hid := a.nextHandle
	a.nextHandle++
	a.fileHandles[hid] = h
	a.mu.Unlock()

	op.Handle = hid
	return nil
}

func (a *FileSystem) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	if op.Parent != fuseops.RootInodeID {
		return syscall.ENOTSUP
	}

	h, err := a.core.Open("/"+op.Name, fs.OCreat)
	if err != nil {
		if errors.Is(err, fs.ErrDirFull) {
			return syscall.ENOSPC
		}
		return syscall.EIO
	}

	inum, err := a.core.Lookup("/" + op.Name)
	if err != nil {
		return syscall.EIO
	}
	kind, size, err := a.core.Stat(inum)
	if err != nil {
		return syscall.EIO
	}

	id := toFuseInode(inum)
	op.Entry = fuseops.ChildInodeEntry{
		Child:      id,
		Attributes: attrsFor(kind, size),
	}
	a.touchLookupCount(id)

	a.mu.Lock()
	hid := a.nextHandle
	a.nextHandle++
	a.fileHandles[hid] = h
	a.mu.Unlock()
	op.Handle = hid

	return nil
}

func (a *FileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	a.mu.Lock()
	h, ok := a.fileHandles[op.Handle]
	a.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}

	if err := a.core.Seek(h, op.Offset); err != nil {
		return syscall.EIO
	}
	n, rerr := a.core.Read(h, op.Dst)
	op.BytesRead = n
	if rerr != nil {
		return syscall.EIO
	}
	return nil
}

func (a *FileSystem) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	a.mu.Lock()
	h, ok := a.fileHandles[op.Handle]
	a.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}

	if err := a.core.Seek(h, op.Offset); err != nil {
		return syscall.EIO
	}
	if _, err := a.core.Write(h, op.Data); err != nil {
		if errors.Is(err, fs.ErrNoFreeBlock) {
			return syscall.ENOSPC
		}
		return syscall.EIO
	}
	return nil
}

func (a *FileSystem) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	return nil
}

func (a *FileSystem) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	a.mu.Lock()
	h, ok := a.fileHandles[op.Handle]
	delete(a.fileHandles, op.Handle)
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return a.core.Close(h)
}

func (a *FileSystem) Destroy() {
	_ = a.core.Destroy()
}

// nameFor bridges the gap between a fuse inode ID and the name the core
// façade operates on: TFS's public API is path-based, not inode-based,
// so this re-derives the name via a directory scan. This is
// O(MaxDirEntries) per call -- acceptable given the core's own
// MAX_DIR_ENTRIES bound, and consistent with the core never exposing an
// inode->name index of its own (the reference design doesn't keep one
// either).
func (a *FileSystem) nameFor(inum fs.InodeNum) (string, error) {
	names, err := a.core.ListDir()
	if err != nil {
		return "", err
	}
	for _, name := range names {
		candidate, err := a.core.Lookup("/" + name)
		if err == nil && candidate == inum {
			return name, nil
		}
	}
	return "", fs.ErrNotFound
}

