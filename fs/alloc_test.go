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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocTableFirstFit(t *testing.T) {
	tbl := newAllocTable(4, 10, 1024)

	a, ok := tbl.alloc()
	require.True(t, ok)
	assert.Equal(t, 0, a)

	b, ok := tbl.alloc()
	require.True(t, ok)
	assert.Equal(t, 1, b)

	tbl.free(a)

	c, ok := tbl.alloc()
	require.True(t, ok)
	assert.Equal(t, 0, c, "first-fit must reuse the lowest freed index")
}

func TestAllocTableExhaustion(t *testing.T) {
	tbl := newAllocTable(2, 0, 1024)

	_, ok := tbl.alloc()
	require.True(t, ok)
	_, ok = tbl.alloc()
	require.True(t, ok)

	_, ok = tbl.alloc()
	assert.False(t, ok)
}
