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
	"io"
	"log"
	"os"
)

// newLogger returns a logger that writes to stderr when debug is set and
// discards everything otherwise, following the same pattern as the
// teacher's gcsproxy.getLogger: a single debug switch rather than
// per-level filtering.
func newLogger(debug bool) *log.Logger {
	w := io.Discard
	if debug {
		w = os.Stderr
	}
	return log.New(w, "tfs: ", log.Lmicroseconds)
}
