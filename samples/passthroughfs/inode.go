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

// Package passthroughfs mirrors a directory on the host into a FUSE mount,
// backing every inode with a real file descriptor opened against the
// directory being mirrored rather than synthesizing content in memory.
package passthroughfs

import (
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/arfuse/fuse/fuseops"
	"github.com/jacobsa/syncutil"
)

// inode is the in-memory record for one file or directory backed by the
// mirrored directory tree. Every inode (other than the root) is reachable
// from its parent's children map by name until it is unlinked.
type inode struct {
	mu syncutil.InvariantMutex

	id     fuseops.InodeID
	parent fuseops.InodeID
	name   string
	isDir  bool

	// fd is the backing descriptor: O_DIRECTORY for a directory, read-write
	// for a regular file. It is the dirfd base for openat/mkdirat/unlinkat/
	// renameat calls naming a child, or the fd used for pread/pwrite/fallocate
	// when this inode is a file.
	fd int // GUARDED_BY(mu)

	attrs fuseops.InodeAttributes // GUARDED_BY(mu)

	// GUARDED_BY(mu)
	lookupCount uint64
	openCount   uint64

	// Directory-only state. childrenLoaded is set the first time the backing
	// directory has been scanned; entries created by this process are added
	// immediately, but entries created by some other process sharing the
	// mirrored directory are only discovered by a fresh scan.
	children       map[string]fuseops.InodeID // GUARDED_BY(mu)
	childrenLoaded bool                        // GUARDED_BY(mu)

	// File-only state: the lazily-loaded contents, per spec.md's read-path.
	buf       []byte // GUARDED_BY(mu)
	bufLoaded bool    // GUARDED_BY(mu)
}

func newInode(id, parent fuseops.InodeID, name string, fd int, isDir bool, attrs fuseops.InodeAttributes) *inode {
	in := &inode{
		id:     id,
		parent: parent,
		name:   name,
		isDir:  isDir,
		fd:     fd,
		attrs:  attrs,
	}
	if isDir {
		in.children = make(map[string]fuseops.InodeID)
	}
	in.mu = syncutil.NewInvariantMutex(in.checkInvariants)
	return in
}

func (in *inode) checkInvariants() {
	if in.isDir && in.children == nil {
		panic("directory inode with nil children map")
	}
	if !in.isDir && in.children != nil {
		panic("non-directory inode with a children map")
	}
}

// statToAttributes converts a unix.Stat_t, as returned by fstat/fstatat
// against the backing store, into the attributes this package hands back
// to the kernel.
func statToAttributes(st *unix.Stat_t) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  uint64(st.Size),
		Nlink: uint32(st.Nlink),
		Mode:  unixModeToGo(st.Mode),
		Atime: time.Unix(st.Atim.Sec, st.Atim.Nsec),
		Mtime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		Ctime: time.Unix(st.Ctim.Sec, st.Ctim.Nsec),
		Uid:   st.Uid,
		Gid:   st.Gid,
	}
}

// unixModeToGo converts a raw POSIX st_mode (permission bits plus a packed
// S_IFxxx file-type field) into the os.FileMode this package's FileSystem
// methods work with.
func unixModeToGo(mode uint32) os.FileMode {
	perm := os.FileMode(mode & 0777)
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return perm | os.ModeDir
	case unix.S_IFLNK:
		return perm | os.ModeSymlink
	case unix.S_IFSOCK:
		return perm | os.ModeSocket
	case unix.S_IFIFO:
		return perm | os.ModeNamedPipe
	case unix.S_IFBLK:
		return perm | os.ModeDevice
	case unix.S_IFCHR:
		return perm | os.ModeDevice | os.ModeCharDevice
	default:
		return perm
	}
}

// fstat reads the current attributes of in's backing fd directly from the
// host, refreshing in.attrs. Caller must hold in.mu.
func (in *inode) fstat() error {
	var st unix.Stat_t
	if err := unix.Fstat(in.fd, &st); err != nil {
		return err
	}
	in.attrs = statToAttributes(&st)
	return nil
}

// close releases the backing descriptor. Called once an inode is removed
// from the cache (deleted, or evicted with no remaining lookups).
func (in *inode) close() error {
	return unix.Close(in.fd)
}
