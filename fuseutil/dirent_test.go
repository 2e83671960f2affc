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

package fuseutil_test

import (
	"testing"

	"github.com/arfuse/fuse/fuseops"
	"github.com/arfuse/fuse/fuseutil"
)

func TestWriteDirentPadsToAlignment(t *testing.T) {
	buf := make([]byte, 4096)
	n := fuseutil.WriteDirent(buf, fuseops.Dirent{
		Offset: 1,
		Inode:  2,
		Name:   "abc",
		Type:   fuseops.DT_File,
	})

	if n == 0 {
		t.Fatalf("WriteDirent returned 0")
	}
	if n%8 != 0 {
		t.Fatalf("n = %d, not 8-byte aligned", n)
	}
}

func TestWriteDirentTooSmallReturnsZero(t *testing.T) {
	buf := make([]byte, 4)
	n := fuseutil.WriteDirent(buf, fuseops.Dirent{Name: "abc"})
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
}

func TestDirentListBuilderStopsOnOverflow(t *testing.T) {
	var b fuseutil.DirentListBuilder
	b.Init(64)

	added := 0
	for i := 0; i < 100; i++ {
		d := fuseops.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.InodeID(i + 2),
			Name:   "somewhat-long-name",
			Type:   fuseops.DT_File,
		}
		if !b.Add(d) {
			break
		}
		added++
	}

	if added == 0 {
		t.Fatalf("expected at least one entry to fit")
	}
	if added == 100 {
		t.Fatalf("expected overflow before all entries were added")
	}

	data := b.Done()
	if len(data) > 64 {
		t.Fatalf("Done() returned %d bytes, want <= 64", len(data))
	}
}
