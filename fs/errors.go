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

import "errors"

// Sentinel errors returned by the internal layers. The public FileSystem
// methods return them unchanged alongside a zero value, in place of the
// reference design's -1; callers and tests distinguish them with
// errors.Is.
var (
	ErrInvalidPath   = errors.New("tfs: invalid path")
	ErrNoFreeInode   = errors.New("tfs: no free inode")
	ErrNoFreeBlock   = errors.New("tfs: no free block")
	ErrNoFreeHandle  = errors.New("tfs: no free open-file handle")
	ErrNotDirectory  = errors.New("tfs: not a directory")
	ErrNotFound      = errors.New("tfs: not found")
	ErrDirFull       = errors.New("tfs: directory full")
	ErrExists        = errors.New("tfs: already exists")
	ErrInvalidHandle = errors.New("tfs: invalid handle")
)
