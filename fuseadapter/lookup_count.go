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

package fuseadapter

// lookupCount tracks how many times the kernel has been handed a given
// inode ID without yet sending a matching ForgetInode, the same
// accounting the teacher's fs/inode package keeps per inode. TFS's core
// has no notion of this -- it is purely a FUSE protocol obligation, so
// it lives here rather than in the fs package.
type lookupCount struct {
	count uint64
}

// inc records one more kernel reference.
func (c *lookupCount) inc() {
	c.count++
}

// dec records the kernel forgetting n references, returning true once
// the count reaches zero, at which point the caller may forget the
// inode ID entirely (TFS itself keeps the underlying inode until a
// real delete operation exists; deletion by name is a named non-goal).
func (c *lookupCount) dec(n uint64) bool {
	if n > c.count {
		panic("lookupCount.dec: n exceeds current count")
	}
	c.count -= n
	return c.count == 0
}
