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

package fuseops

import (
	"os"
	"time"
)

// Op is implemented by every op type in this package (InitOp, LookUpInodeOp,
// and so on). It carries no methods of its own; callers type-switch on the
// concrete type to dispatch, and read the OpHeader field present on every
// variant for request metadata common to all ops.
type Op interface{}

// InodeID is a 64-bit inode identifier, unique for the lifetime of the
// mount (a file system may reuse an ID after the kernel's lookup count for
// it has dropped to zero and the file system has processed the
// ForgetInodeOp that brought it there).
type InodeID uint64

// RootInodeID is the inode ID of the root of the file system. The kernel
// refers to it by this value without a preceding LookUpInodeOp.
const RootInodeID InodeID = 1

// HandleID is an opaque value chosen by the file system when responding to
// OpenFileOp, OpenDirOp, or CreateFileOp, and echoed by the kernel on every
// later op that operates on the same struct file.
type HandleID uint64

// DirOffset is an opaque cursor into a directory listing, as described on
// ReadDirOp.Offset. It is not necessarily a byte count.
type DirOffset uint64

// OpHeader holds the fields common to every request that a file system
// might plausibly need regardless of the particular op.
type OpHeader struct {
	// The user and group of the process that initiated the syscall this op
	// originated from.
	Uid uint32
	Gid uint32

	// The process ID of the process that initiated the syscall this op
	// originated from, if known by the kernel.
	Pid uint32
}

// InodeAttributes describes the attributes of a file system inode, roughly
// the POSIX stat struct.
type InodeAttributes struct {
	Size  uint64
	Nlink uint32
	Mode  os.FileMode

	Atime time.Time
	Mtime time.Time
	Ctime time.Time

	Uid uint32
	Gid uint32
}

// ChildInodeEntry describes an inode within a directory, as returned by
// LookUpInodeOp, MkDirOp, MkNodOp, CreateFileOp, and LinkOp. The two
// expiration fields mirror the kernel's dentry and attribute caches: until
// the expiration time passes, the kernel may skip a fresh lookup or getattr
// and trust the values here.
type ChildInodeEntry struct {
	Child      InodeID
	Generation uint64

	Attributes InodeAttributes

	EntryExpiration      time.Time
	AttributesExpiration time.Time
}
