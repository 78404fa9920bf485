// SPDX-License-Identifier: AGPL-3.0
// Copyright 2026 The Meshseeks Authors
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package executor

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCounter wraps a cached cl100k_base encoding so every Run call on this
// Executor counts tokens the same way, without re-initializing the encoding
// table per invocation.
type tokenCounter struct {
	mu       sync.Mutex
	encoding *tiktoken.Tiktoken
}

var sharedEncoding struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func newTokenCounter() *tokenCounter {
	sharedEncoding.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			sharedEncoding.enc = enc
		}
	})
	return &tokenCounter{encoding: sharedEncoding.enc}
}

// count returns the token count for text, falling back to a rough
// characters-per-token estimate if the encoding table failed to load.
func (tc *tokenCounter) count(text string) int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.encoding == nil {
		return len(text) / 4
	}
	return len(tc.encoding.Encode(text, nil, nil))
}
