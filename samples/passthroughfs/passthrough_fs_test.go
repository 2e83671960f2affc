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

package passthroughfs_test

import (
	"context"
	"os"
	"testing"

	"github.com/jacobsa/timeutil"

	"github.com/arfuse/fuse"
	"github.com/arfuse/fuse/fuseops"
	"github.com/arfuse/fuse/samples/passthroughfs"
)

func newFS(t *testing.T) (fuse.FileSystem, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := passthroughfs.New(dir, &timeutil.SimulatedClock{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fs, dir
}

func TestGetRootAttributes(t *testing.T) {
	fs, _ := newFS(t)
	ctx := context.Background()

	op := &fuseops.GetInodeAttributesOp{Inode: fuseops.RootInodeID}
	if err := fs.GetInodeAttributes(ctx, op); err != nil {
		t.Fatalf("GetInodeAttributes: %v", err)
	}
	if !op.Attributes.Mode.IsDir() {
		t.Fatalf("root inode should be a directory, got mode %v", op.Attributes.Mode)
	}
}

func TestCreateWriteRead(t *testing.T) {
	fs, _ := newFS(t)
	ctx := context.Background()

	mkdir := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "d", Mode: os.ModeDir | 0755}
	if err := fs.MkDir(ctx, mkdir); err != nil {
		t.Fatalf("MkDir: %v", err)
	}
	dirID := mkdir.Entry.Child

	create := &fuseops.CreateFileOp{Parent: dirID, Name: "f", Mode: 0644}
	if err := fs.CreateFile(ctx, create); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	fileID := create.Entry.Child
	handle := create.Handle

	write := &fuseops.WriteFileOp{Inode: fileID, Handle: handle, Offset: 0, Data: []byte("hello")}
	if err := fs.WriteFile(ctx, write); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	read := &fuseops.ReadFileOp{Inode: fileID, Handle: handle, Offset: 0, Size: 8}
	if err := fs.ReadFile(ctx, read); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(read.Data) != "hello" {
		t.Fatalf("got %q, want %q", read.Data, "hello")
	}

	// Reading at or past EOF is a deliberate EINVAL per spec.md's chosen
	// semantics, not an empty slice.
	readPastEOF := &fuseops.ReadFileOp{Inode: fileID, Handle: handle, Offset: 5, Size: 1}
	if err := fs.ReadFile(ctx, readPastEOF); err != fuse.EINVAL {
		t.Fatalf("got %v, want EINVAL", err)
	}
}

func TestDeferredDeletion(t *testing.T) {
	fs, _ := newFS(t)
	ctx := context.Background()

	create := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "f", Mode: 0644}
	if err := fs.CreateFile(ctx, create); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	fileID := create.Entry.Child

	// Two extra lookups bring the lookup count to 3 (1 from create + 2 here).
	for i := 0; i < 2; i++ {
		lookup := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "f"}
		if err := fs.LookUpInode(ctx, lookup); err != nil {
			t.Fatalf("LookUpInode: %v", err)
		}
	}

	if err := fs.Unlink(ctx, &fuseops.UnlinkOp{Parent: fuseops.RootInodeID, Name: "f"}); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	// The inode must still be addressable (trashed, not destroyed) until the
	// kernel forgets all three references.
	getattr := &fuseops.GetInodeAttributesOp{Inode: fileID}
	if err := fs.GetInodeAttributes(ctx, getattr); err != nil {
		t.Fatalf("GetInodeAttributes on trashed inode: %v", err)
	}

	if err := fs.ForgetInode(ctx, &fuseops.ForgetInodeOp{Inode: fileID, N: 3}); err != nil {
		t.Fatalf("ForgetInode: %v", err)
	}
}

func TestReadDirCursor(t *testing.T) {
	fs, _ := newFS(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if err := fs.MkDir(ctx, &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: name, Mode: os.ModeDir | 0755}); err != nil {
			t.Fatalf("MkDir(%q): %v", name, err)
		}
	}

	opendir := &fuseops.OpenDirOp{Inode: fuseops.RootInodeID}
	if err := fs.OpenDir(ctx, opendir); err != nil {
		t.Fatalf("OpenDir: %v", err)
	}

	full := &fuseops.ReadDirOp{Inode: fuseops.RootInodeID, Handle: opendir.Handle, Offset: 0, Size: 4096}
	if err := fs.ReadDir(ctx, full); err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(full.Data) == 0 {
		t.Fatalf("expected non-empty directory listing")
	}

	partial := &fuseops.ReadDirOp{Inode: fuseops.RootInodeID, Handle: opendir.Handle, Offset: 2, Size: 4096}
	if err := fs.ReadDir(ctx, partial); err != nil {
		t.Fatalf("ReadDir at offset 2: %v", err)
	}
	if len(partial.Data) == 0 || len(partial.Data) >= len(full.Data) {
		t.Fatalf("expected a strictly shorter listing resuming at offset 2")
	}
}

func TestRenameCollisionIsEEXIST(t *testing.T) {
	fs, _ := newFS(t)
	ctx := context.Background()

	if err := fs.MkDir(ctx, &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "x", Mode: os.ModeDir | 0755}); err != nil {
		t.Fatalf("MkDir(x): %v", err)
	}
	if err := fs.MkDir(ctx, &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "y", Mode: os.ModeDir | 0755}); err != nil {
		t.Fatalf("MkDir(y): %v", err)
	}

	err := fs.Rename(ctx, &fuseops.RenameOp{
		OldParent: fuseops.RootInodeID,
		OldName:   "x",
		NewParent: fuseops.RootInodeID,
		NewName:   "y",
	})
	if err != fuse.EEXIST {
		t.Fatalf("got %v, want EEXIST", err)
	}
}

func TestRmDirNonEmptyIsENOTEMPTY(t *testing.T) {
	fs, _ := newFS(t)
	ctx := context.Background()

	mkdir := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "d", Mode: os.ModeDir | 0755}
	if err := fs.MkDir(ctx, mkdir); err != nil {
		t.Fatalf("MkDir: %v", err)
	}
	if err := fs.MkDir(ctx, &fuseops.MkDirOp{Parent: mkdir.Entry.Child, Name: "child", Mode: os.ModeDir | 0755}); err != nil {
		t.Fatalf("MkDir(child): %v", err)
	}

	err := fs.RmDir(ctx, &fuseops.RmDirOp{Parent: fuseops.RootInodeID, Name: "d"})
	if err != fuse.ENOTEMPTY {
		t.Fatalf("got %v, want ENOTEMPTY", err)
	}
}
