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

// Package fuseops contains implementations of the fuse.Op interface that may
// be returned by fuse.Connection.ReadOp. See documentation in that package
// for more.
package fuseops

import (
	"os"
	"time"

	"github.com/arfuse/fuse/internal/fusekernel"
)

// Sent once when mounting the file system. It must succeed in order for the
// mount to succeed. Kernel is the ABI version the kernel advertised; by the
// time this op reaches the file system the connection has already settled
// on the lower of Kernel and this package's own version.
type InitOp struct {
	Header OpHeader
	Kernel fusekernel.Protocol

	// Flags advertised by the kernel in InitIn.Flags. The negotiated flags
	// sent back in InitOut must be a subset of these.
	Flags uint32
}

// Sent once when the file system is being unmounted. No further ops will be
// sent afterward.
type DestroyOp struct {
	Header OpHeader
}

////////////////////////////////////////////////////////////////////////
// Inodes
////////////////////////////////////////////////////////////////////////

// Look up a child by name within a parent directory. The kernel sends this
// when resolving user paths to dentry structs, which are then cached.
type LookUpInodeOp struct {
	Header OpHeader

	// The ID of the directory inode to which the child belongs.
	Parent InodeID

	// The name of the child of interest, relative to the parent. For example, in
	// this directory structure:
	//
	//     foo/
	//         bar/
	//             baz
	//
	// the file system may receive a request to look up the child named "bar" for
	// the parent foo/.
	Name string

	// The resulting entry. Must be filled out by the file system. A successful
	// reply to this op increments the inode's lookup count by one, which the
	// kernel will later balance with a ForgetInodeOp.
	Entry ChildInodeEntry
}

// Refresh the attributes for an inode whose ID was previously returned in a
// LookUpInodeOp. The kernel sends this when the FUSE VFS layer's cache of
// inode attributes is stale. This is controlled by the AttributesExpiration
// field of ChildInodeEntry, etc.
type GetInodeAttributesOp struct {
	Header OpHeader

	// The inode of interest.
	Inode InodeID

	// Set by the file system: attributes for the inode, and the time at which
	// they should expire. See notes on ChildInodeEntry.AttributesExpiration for
	// more.
	Attributes           InodeAttributes
	AttributesExpiration time.Time
}

// Change attributes for an inode.
//
// The kernel sends this for obvious cases like chmod(2), and for less obvious
// cases like ftruncate(2).
type SetInodeAttributesOp struct {
	Header OpHeader

	// The inode of interest.
	Inode InodeID

	// The attributes to modify, or nil for attributes that don't need a change.
	Size  *uint64
	Mode  *os.FileMode
	Atime *time.Time
	Mtime *time.Time

	// Set by the file system: the new attributes for the inode, and the time at
	// which they should expire. See notes on
	// ChildInodeEntry.AttributesExpiration for more.
	Attributes           InodeAttributes
	AttributesExpiration time.Time
}

// Forget an inode ID previously issued (e.g. by LookUpInode or MkDir),
// decrementing its lookup count by N. The kernel sends this when removing an
// inode from its internal caches; it never receives a reply.
type ForgetInodeOp struct {
	Header OpHeader

	// The inode to be forgotten. The kernel guarantees that the node ID will not
	// be used in further calls to the file system (unless it is reissued by the
	// file system) once its lookup count reaches zero.
	Inode InodeID
	N     uint64
}

// The batched form of ForgetInodeOp: a single message decrementing the
// lookup count of several inodes at once. Never receives a reply.
type BatchForgetOp struct {
	Header OpHeader

	Entries []ForgetInodeEntry
}

// One element of a BatchForgetOp.
type ForgetInodeEntry struct {
	Inode InodeID
	N     uint64
}

////////////////////////////////////////////////////////////////////////
// Inode creation
////////////////////////////////////////////////////////////////////////

// Create a directory inode as a child of an existing directory inode. The
// kernel sends this in response to a mkdir(2) call.
//
// The kernel appears to verify the name doesn't already exist (mkdir calls
// mkdirat calls user_path_create calls filename_create, which verifies:
// http://goo.gl/FZpLu5). But volatile file systems and paranoid non-volatile
// file systems should check for the reasons described below on CreateFile.
type MkDirOp struct {
	Header OpHeader

	// The ID of parent directory inode within which to create the child.
	Parent InodeID

	// The name of the child to create, and the mode with which to create it.
	Name string
	Mode os.FileMode

	// Set by the file system: information about the inode that was created.
	Entry ChildInodeEntry
}

// Create a non-directory, non-symlink inode as a child of an existing
// directory inode, in response to a mknod(2) call. File systems that only
// support regular files may respond ENOSYS to any Mode outside S_IFREG.
type MkNodOp struct {
	Header OpHeader

	Parent InodeID
	Name   string
	Mode   os.FileMode
	Rdev   uint32

	// Set by the file system.
	Entry ChildInodeEntry
}

// Create a file inode and open it.
//
// The kernel sends this when the user asks to open a file with the O_CREAT
// flag and the kernel has observed that the file doesn't exist. (See for
// example lookup_open, http://goo.gl/PlqE9d).
//
// However it's impossible to tell for sure that all kernels make this check
// in all cases and the official fuse documentation is less than encouraging
// (" the file does not exist, first create it with the specified mode, and
// then open it"). Therefore file systems would be smart to be paranoid and
// check themselves, returning EEXIST when the file already exists. This of
// course particularly applies to file systems that are volatile from the
// kernel's point of view.
type CreateFileOp struct {
	Header OpHeader

	// The ID of parent directory inode within which to create the child file.
	Parent InodeID

	// The name of the child to create, and the mode with which to create it.
	Name string
	Mode os.FileMode

	// Flags for the open operation (O_RDWR, O_TRUNC, etc).
	Flags int

	// Set by the file system: information about the inode that was created.
	Entry ChildInodeEntry

	// Set by the file system: an opaque ID that will be echoed in follow-up
	// calls for this file using the same struct file in the kernel. In practice
	// this usually means follow-up calls using the file descriptor returned by
	// open(2).
	//
	// The handle may be supplied in future ops like ReadFileOp that contain a
	// file handle. The file system must ensure this ID remains valid until a
	// later call to ReleaseFileHandle.
	Handle HandleID
}

////////////////////////////////////////////////////////////////////////
// Unlinking, linking, and renaming
////////////////////////////////////////////////////////////////////////

// Unlink a directory from its parent. Because directories cannot have a link
// count above one, this means the directory inode should be deleted as well
// once the kernel sends ForgetInodeOp.
//
// The file system is responsible for checking that the directory is empty.
//
// Sample implementation in ext2: ext2_rmdir (http://goo.gl/B9QmFf)
type RmDirOp struct {
	Header OpHeader

	// The ID of parent directory inode, and the name of the directory being
	// removed within it.
	Parent InodeID
	Name   string
}

// Unlink a file from its parent. If this brings the inode's link count to
// zero, the inode should be deleted once the kernel sends ForgetInodeOp. It
// may still be referenced before then if a user still has the file open.
//
// Sample implementation in ext2: ext2_unlink (http://goo.gl/hY6r6C)
type UnlinkOp struct {
	Header OpHeader

	// The ID of parent directory inode, and the name of the file being removed
	// within it.
	Parent InodeID
	Name   string
}

// Rename (and possibly move) an entry. If an entry already exists at the
// destination, the kernel has already verified it is of a compatible type;
// the file system still must enforce the replaced-directory-must-be-empty
// rule itself.
type RenameOp struct {
	Header OpHeader

	OldParent InodeID
	OldName   string
	NewParent InodeID
	NewName   string
}

// Create a new hard link to an existing (non-directory) inode.
type LinkOp struct {
	Header OpHeader

	Parent InodeID
	Name   string
	Target InodeID

	// Set by the file system.
	Entry ChildInodeEntry
}

////////////////////////////////////////////////////////////////////////
// Directory handles
////////////////////////////////////////////////////////////////////////

// Open a directory inode.
//
// On Linux the sends this when setting up a struct file for a particular inode
// with type directory, usually in response to an open(2) call from a
// user-space process. On OS X it may not be sent for every open(2) (cf.
// https://github.com/osxfuse/osxfuse/issues/199).
type OpenDirOp struct {
	Header OpHeader

	// The ID of the inode to be opened.
	Inode InodeID

	// Mode and options flags.
	Flags int

	// Set by the file system: an opaque ID that will be echoed in follow-up
	// calls for this directory using the same struct file in the kernel. In
	// practice this usually means follow-up calls using the file descriptor
	// returned by open(2).
	//
	// The handle may be supplied in future ops like ReadDirOp that contain a
	// directory handle. The file system must ensure this ID remains valid until
	// a later call to ReleaseDirHandle.
	Handle HandleID
}

// Read entries from a directory previously opened with OpenDir.
type ReadDirOp struct {
	Header OpHeader

	// The directory inode that we are reading, and the handle previously
	// returned by OpenDir when opening that inode.
	Inode  InodeID
	Handle HandleID

	// The offset within the directory at which to read.
	//
	// Warning: this field is not necessarily a count of bytes. Its legal values
	// are defined by the results returned in ReadDirOp.Data. See the notes on
	// DirOffset for more.
	Offset DirOffset

	// The maximum number of bytes to return in Data. A smaller number is
	// acceptable.
	Size int

	// Set by the file system: a buffer consisting of a sequence of FUSE
	// directory entries in the format generated by fuse_add_direntry
	// (http://goo.gl/qCcHCV), which is consumed by parse_dirfile
	// (http://goo.gl/2WUmD2). Use fuseutil.DirentListBuilder to generate this
	// data.
	//
	// The buffer must not exceed the length specified in Size. It is okay for
	// the final entry to be truncated; parse_dirfile copes with this by
	// ignoring the partial record.
	//
	// An empty buffer indicates the end of the directory has been reached.
	Data []byte
}

// Release a previously-minted directory handle. The kernel sends this when
// there are no more references to an open directory: all file descriptors are
// closed and all memory mappings are unmapped.
//
// The kernel guarantees that the handle ID will not be used in further ops
// sent to the file system (unless it is reissued by the file system).
type ReleaseDirHandleOp struct {
	Header OpHeader

	// The directory inode whose handle is being released.
	Inode InodeID

	// The handle ID to be released. The kernel guarantees that this ID will not
	// be used in further calls to the file system (unless it is reissued by the
	// file system).
	Handle HandleID
}

////////////////////////////////////////////////////////////////////////
// File handles
////////////////////////////////////////////////////////////////////////

// Open a file inode.
//
// On Linux the sends this when setting up a struct file for a particular inode
// with type file, usually in response to an open(2) call from a user-space
// process. On OS X it may not be sent for every open(2)
// (cf.https://github.com/osxfuse/osxfuse/issues/199).
type OpenFileOp struct {
	Header OpHeader

	// The ID of the inode to be opened.
	Inode InodeID

	// Mode and options flags.
	Flags int

	// An opaque ID that will be echoed in follow-up calls for this file using
	// the same struct file in the kernel. In practice this usually means
	// follow-up calls using the file descriptor returned by open(2).
	//
	// The handle may be supplied in future ops like ReadFileOp that contain a
	// file handle. The file system must ensure this ID remains valid until a
	// later call to ReleaseFileHandle.
	Handle HandleID
}

// Read data from a file previously opened with CreateFile or OpenFile.
//
// Note that this op is not sent for every call to read(2) by the end user;
// some reads may be served by the page cache. See notes on WriteFileOp for
// more.
type ReadFileOp struct {
	Header OpHeader

	// The file inode that we are reading, and the handle previously returned by
	// CreateFile or OpenFile when opening that inode.
	Inode  InodeID
	Handle HandleID

	// The range of the file to read.
	//
	// The FUSE documentation requires that exactly the number of bytes be
	// returned, except in the case of EOF or error (http://goo.gl/ZgfBkF). This
	// appears to be because it uses file mmapping machinery
	// (http://goo.gl/SGxnaN) to read a page at a time. It appears to understand
	// where EOF is by checking the inode size (http://goo.gl/0BkqKD), returned
	// by a previous call to LookUpInode, GetInodeAttributes, etc.
	Offset int64
	Size   int

	// Set by the file system: the data read. If this is less than the requested
	// size, it indicates EOF. An error should not be returned in this case.
	Data []byte
}

// Write data to a file previously opened with CreateFile or OpenFile.
//
// When the user writes data using write(2), the write goes into the page
// cache and the page is marked dirty. Later the kernel may write back the
// page via the FUSE VFS layer, causing this op to be sent.
//
// Note that writes *will* be received before a FlushOp when closing the file
// descriptor to which they were written.
type WriteFileOp struct {
	Header OpHeader

	// The file inode that we are modifying, and the handle previously returned
	// by CreateFile or OpenFile when opening that inode.
	Inode  InodeID
	Handle HandleID

	// The offset at which to write the data below.
	//
	// If the offset is greater than the current size, the file system should
	// act as though the gap were filled with null bytes.
	Offset int64

	// The data to write.
	//
	// The FUSE documentation requires that exactly the number of bytes supplied
	// be written, except on error (http://goo.gl/KUpwwn).
	//
	// This slice aliases the session's receive buffer and is only valid for
	// the duration of the FileSystem method call that received this op; copy
	// it if it must outlive that call.
	Data []byte
}

// Synchronize the current contents of an open file to storage.
//
// vfs.txt documents this as being called for by the fsync(2) system call
// (cf. http://goo.gl/j9X8nB). Note that this is also sent by fdatasync(2)
// (cf. http://goo.gl/01R7rF), and may be sent for msync(2) with the MS_SYNC
// flag (see the notes on FlushFileOp).
//
// See also: FlushFileOp, which may perform a similar function when closing a
// file (but which is not used in "real" file systems).
type SyncFileOp struct {
	Header OpHeader

	// The file and handle being sync'd.
	Inode  InodeID
	Handle HandleID
}

// Flush the current state of an open file to storage upon closing a file
// descriptor.
//
// vfs.txt documents this as being sent for each close(2) system call (cf.
// http://goo.gl/FSkbrq). But note that this is also sent in other contexts
// where a file descriptor is closed, such as dup2(2) (cf. http://goo.gl/NQDvFS).
//
// Because of cases like dup2(2), FlushFileOps are not necessarily one to one
// with OpenFileOps. They should not be used for reference counting, and the
// handle must remain valid even after the flush op is received (use
// ReleaseFileHandleOp for disposing of it).
type FlushFileOp struct {
	Header OpHeader

	// The file and handle being flushed.
	Inode  InodeID
	Handle HandleID
}

// Preallocate space for a byte range of an open file, without necessarily
// changing its apparent size. Not in spec.md's mandatory opcode set; this
// is a supplemental operation the reference file system wires to a real
// fallocate(2) call.
type FallocateOp struct {
	Header OpHeader

	Inode  InodeID
	Handle HandleID
	Offset uint64
	Length uint64
	Mode   uint32
}

// Release a previously-minted file handle. The kernel calls this when there
// are no more references to an open file: all file descriptors are closed
// and all memory mappings are unmapped.
//
// The kernel guarantees that the handle ID will not be used in further calls
// to the file system (unless it is reissued by the file system).
type ReleaseFileHandleOp struct {
	Header OpHeader

	// The file inode whose handle is being released.
	Inode InodeID

	// The handle ID to be released. The kernel guarantees that this ID will not
	// be used in further calls to the file system (unless it is reissued by the
	// file system).
	Handle HandleID

	// Decoded from the kernel's release flags.
	FlushOnRelease bool
	UnlockFlock    bool
}

////////////////////////////////////////////////////////////////////////
// Filesystem-wide
////////////////////////////////////////////////////////////////////////

// Report file system wide statistics, as for statfs(2) and statvfs(2).
type StatFSOp struct {
	Header OpHeader

	// Set by the file system.
	Blocks, BlocksFree, BlocksAvailable uint64
	Files, FilesFree                   uint64
	IOSize, BlockSize                  uint32
}

////////////////////////////////////////////////////////////////////////
// Extended attributes
////////////////////////////////////////////////////////////////////////

type GetXattrOp struct {
	Header OpHeader

	Inode InodeID
	Name  string

	// Size of the caller's buffer; zero means "just tell me the size".
	Size int

	// Set by the file system.
	Data []byte
}

type ListXattrOp struct {
	Header OpHeader

	Inode InodeID
	Size  int

	// Set by the file system: NUL-separated attribute names.
	Data []byte
}

type SetXattrOp struct {
	Header OpHeader

	Inode InodeID
	Name  string
	Value []byte
	Flags uint32
}

type RemoveXattrOp struct {
	Header OpHeader

	Inode InodeID
	Name  string
}

////////////////////////////////////////////////////////////////////////
// Access, symlinks, interrupts, and the unknown
////////////////////////////////////////////////////////////////////////

// Check permissions, as for access(2) and faccessat(2).
type AccessOp struct {
	Header OpHeader

	Inode InodeID
	Mask  uint32
}

// Read the target of a symlink. Not served by the passthrough file system in
// this module (symlinks fall outside its scope), but present so that a
// different FileSystem implementation can support them.
type ReadSymlinkOp struct {
	Header OpHeader

	Inode InodeID

	// Set by the file system.
	Target string
}

// Ask the file system to cancel a previously issued request identified by
// FuseID. The session always replies ENOSYS to this op: outstanding
// operations in this package always run to completion.
type InterruptOp struct {
	Header OpHeader

	FuseID uint64
}

// Produced for opcodes this package does not recognize, or recognizes but
// declines to support (IOCTL, POLL, BMAP, the macOS-only ops, CUSE_INIT).
// The session replies ENOSYS without involving the FileSystem.
type UnknownOp struct {
	Header OpHeader

	OpType uint32
}
