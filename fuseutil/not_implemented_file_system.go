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
	"syscall"

	"github.com/arfuse/fuse/fuseops"
)

// NotImplementedFileSystem responds to every op with ENOSYS, except Init,
// which succeeds, and Destroy, which does nothing. Embed it in
// your struct to inherit default implementations for the methods you don't
// care about, ensuring your struct continues to implement FileSystem even
// as new methods are added to the interface.
//
// This package cannot import the root fuse package for its Errno alias
// (fuse imports fuseutil for the FileSystem interface itself), so this file
// uses syscall.ENOSYS directly; it is the same value as fuse.ENOSYS.
type NotImplementedFileSystem struct{}

var _ FileSystem = &NotImplementedFileSystem{}

func (fs *NotImplementedFileSystem) Init(ctx context.Context, op *fuseops.InitOp) error {
	return nil
}

func (fs *NotImplementedFileSystem) Destroy() {}

func (fs *NotImplementedFileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) BatchForget(ctx context.Context, op *fuseops.BatchForgetOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) MkNod(ctx context.Context, op *fuseops.MkNodOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Link(ctx context.Context, op *fuseops.LinkOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Fallocate(ctx context.Context, op *fuseops.FallocateOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) GetXattr(ctx context.Context, op *fuseops.GetXattrOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ListXattr(ctx context.Context, op *fuseops.ListXattrOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) SetXattr(ctx context.Context, op *fuseops.SetXattrOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) RemoveXattr(ctx context.Context, op *fuseops.RemoveXattrOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Access(ctx context.Context, op *fuseops.AccessOp) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	return syscall.ENOSYS
}
