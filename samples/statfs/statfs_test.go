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

package statfs_test

import (
	"context"
	"testing"

	"github.com/arfuse/fuse"
	"github.com/arfuse/fuse/fuseops"
	"github.com/arfuse/fuse/samples/statfs"
)

func TestCannedStatFSResponse(t *testing.T) {
	fs := statfs.New()
	want := fuseops.StatFSOp{Blocks: 100, BlocksFree: 50, Files: 10}
	fs.SetStatFSResponse(want)

	got := fuseops.StatFSOp{}
	if err := fs.StatFS(context.Background(), &got); err != nil {
		t.Fatalf("StatFS: %v", err)
	}
	if got.Blocks != want.Blocks || got.BlocksFree != want.BlocksFree || got.Files != want.Files {
		t.Errorf("StatFS = %+v, want %+v", got, want)
	}
}

func TestLookUpInodeRejectsUnknownParent(t *testing.T) {
	fs := statfs.New()
	op := fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID + 99, Name: "x"}
	if err := fs.LookUpInode(context.Background(), &op); err != fuse.ENOENT {
		t.Errorf("LookUpInode with bad parent = %v, want ENOENT", err)
	}
}

func TestWriteFileTracksMostRecentSize(t *testing.T) {
	fs := statfs.New()
	if got := fs.MostRecentWriteSize(); got != -1 {
		t.Fatalf("MostRecentWriteSize before any write = %d, want -1", got)
	}

	op := fuseops.WriteFileOp{Data: []byte("hello")}
	if err := fs.WriteFile(context.Background(), &op); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got, want := fs.MostRecentWriteSize(), len(op.Data); got != want {
		t.Errorf("MostRecentWriteSize = %d, want %d", got, want)
	}
}

func TestGetInodeAttributesUnknownInode(t *testing.T) {
	fs := statfs.New()
	op := fuseops.GetInodeAttributesOp{Inode: fuseops.RootInodeID + 99}
	if err := fs.GetInodeAttributes(context.Background(), &op); err != fuse.ENOENT {
		t.Errorf("GetInodeAttributes with bad inode = %v, want ENOENT", err)
	}
}
