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

// InodeNum identifies a slot in the inode table. The zero value is the
// root directory's number.
type InodeNum int32

// BlockIdx identifies a slot in the data block arena. Block index zero is
// a valid block, not a sentinel -- unlike InodeNum and Handle, an
// unallocated BlockIdx is represented by option[BlockIdx], never by a
// magic value of BlockIdx itself.
type BlockIdx int32

// Handle identifies a live entry in the open file table.
type Handle int32

// RootDirInum is the inumber of the singleton root directory, created
// once during NewFileSystem and never freed.
const RootDirInum InodeNum = 0

// Kind distinguishes the two inode types the core supports.
type Kind int

const (
	File Kind = iota
	Directory
)

func (k Kind) String() string {
	if k == Directory {
		return "directory"
	}
	return "file"
}

// Open flags, matching the bit layout named in the specification.
type OpenFlags int

const (
	OStart  OpenFlags = 0
	OCreat  OpenFlags = 1 << 0
	OTrunc  OpenFlags = 1 << 1
	OAppend OpenFlags = 1 << 2
)

func (f OpenFlags) has(bit OpenFlags) bool { return f&bit != 0 }
