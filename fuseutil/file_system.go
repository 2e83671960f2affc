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

package fuseutil

import (
	"context"

	"github.com/arfuse/fuse/fuseops"
)

// FileSystem is the interface implemented by a file system mounted through
// this package. Each method is called from the single goroutine that serves
// the mount (the fuse package's serve loop) and must return before the next
// request is read: a method that blocks indefinitely stalls the whole mount.
//
// The InodeID, HandleID, and DirOffset values in each op follow the rules
// documented on the individual op types in fuseops: lookup counts are incremented by a successful
// LookUpInode/MkDir/MkNod/CreateFile/Link and decremented by ForgetInode and
// BatchForgetOp; they have nothing to do with open file handles, which are
// tracked separately via Open{File,Dir}/Release{File,Dir}Handle.
//
// Implementations that don't support every op should embed
// NotImplementedFileSystem to pick up ENOSYS defaults.
type FileSystem interface {
	Init(ctx context.Context, op *fuseops.InitOp) error
	Destroy()

	LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error
	GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error
	SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error
	ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error
	BatchForget(ctx context.Context, op *fuseops.BatchForgetOp) error

	MkDir(ctx context.Context, op *fuseops.MkDirOp) error
	MkNod(ctx context.Context, op *fuseops.MkNodOp) error
	CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error
	RmDir(ctx context.Context, op *fuseops.RmDirOp) error
	Unlink(ctx context.Context, op *fuseops.UnlinkOp) error
	Rename(ctx context.Context, op *fuseops.RenameOp) error
	Link(ctx context.Context, op *fuseops.LinkOp) error

	OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error
	ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error
	ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error

	OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error
	ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error
	WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error
	SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error
	FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error
	ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error
	Fallocate(ctx context.Context, op *fuseops.FallocateOp) error

	StatFS(ctx context.Context, op *fuseops.StatFSOp) error

	GetXattr(ctx context.Context, op *fuseops.GetXattrOp) error
	ListXattr(ctx context.Context, op *fuseops.ListXattrOp) error
	SetXattr(ctx context.Context, op *fuseops.SetXattrOp) error
	RemoveXattr(ctx context.Context, op *fuseops.RemoveXattrOp) error

	Access(ctx context.Context, op *fuseops.AccessOp) error
	ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error
}
