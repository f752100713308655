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

// option is the internal replacement for the reference design's "-1 means
// absent" convention (design note in spec.md section 9). It carries an
// inode's direct and indirect block slots; inode numbers and handles are
// returned as (value, bool) or (value, error) pairs instead, and the
// public FileSystem methods report failure with an error, not -1.
type option[T any] struct {
	value T
	ok    bool
}

func some[T any](v T) option[T] {
	return option[T]{value: v, ok: true}
}

func none[T any]() option[T] {
	return option[T]{}
}

func (o option[T]) get() (T, bool) {
	return o.value, o.ok
}

func (o option[T]) orZero() T {
	return o.value
}
