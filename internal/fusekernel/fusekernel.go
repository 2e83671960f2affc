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

// Package fusekernel mirrors the wire layout of the Linux/macOS FUSE kernel
// ABI: opcodes, fixed-size request/reply records, and the protocol version
// negotiated during INIT. Every struct here is packed and little-endian to
// match fuse_kernel.h; field order must not change.
package fusekernel

import (
	"fmt"
	"runtime"
	"unsafe"
)

// Protocol is a (major, minor) FUSE ABI version pair.
type Protocol struct {
	Major uint32
	Minor uint32
}

func (p Protocol) String() string {
	return fmt.Sprintf("%d.%d", p.Major, p.Minor)
}

// LT reports whether p is strictly older than o.
func (p Protocol) LT(o Protocol) bool {
	return p.Major < o.Major || (p.Major == o.Major && p.Minor < o.Minor)
}

// HasReaddirplus reports whether READDIRPLUS is defined at this version.
func (p Protocol) HasReaddirplus() bool {
	return !p.LT(Protocol{7, 21})
}

const (
	// ProtoVersionMinMajor/Minor is the oldest kernel ABI this package will
	// negotiate with. Below this, INIT is rejected with EPROTO.
	ProtoVersionMinMajor = 7
	ProtoVersionMinMinor = 6

	// KernelVersion/KernelMinorVersion is the ABI version this package speaks.
	// A newer kernel is asked to downgrade to this; an older kernel dictates
	// its own minor version, which we accept down to the minimum above.
	KernelVersion      = 7
	KernelMinorVersion = 19
)

// Opcode identifies the kind of request sent by the kernel.
type Opcode uint32

const (
	OpLookup      Opcode = 1
	OpForget      Opcode = 2 // No reply.
	OpGetattr     Opcode = 3
	OpSetattr     Opcode = 4
	OpReadlink    Opcode = 5
	OpSymlink     Opcode = 6
	OpMknod       Opcode = 8
	OpMkdir       Opcode = 9
	OpUnlink      Opcode = 10
	OpRmdir       Opcode = 11
	OpRename      Opcode = 12
	OpLink        Opcode = 13
	OpOpen        Opcode = 14
	OpRead        Opcode = 15
	OpWrite       Opcode = 16
	OpStatfs      Opcode = 17
	OpRelease     Opcode = 18
	OpFsync       Opcode = 20
	OpSetxattr    Opcode = 21
	OpGetxattr    Opcode = 22
	OpListxattr   Opcode = 23
	OpRemovexattr Opcode = 24
	OpFlush       Opcode = 25
	OpInit        Opcode = 26
	OpOpendir     Opcode = 27
	OpReaddir     Opcode = 28
	OpReleasedir  Opcode = 29
	OpFsyncdir    Opcode = 30
	OpGetlk       Opcode = 31
	OpSetlk       Opcode = 32
	OpSetlkw      Opcode = 33
	OpAccess      Opcode = 34
	OpCreate      Opcode = 35
	OpInterrupt   Opcode = 36
	OpBmap        Opcode = 37
	OpDestroy     Opcode = 38
	OpIoctl       Opcode = 39
	OpPoll        Opcode = 40
	OpNotifyReply Opcode = 41
	OpBatchForget Opcode = 42
	OpFallocate   Opcode = 43

	// macOS-only.
	OpSetvolname Opcode = 61
	OpGetxtimes  Opcode = 62
	OpExchange   Opcode = 63

	// CUSE.
	OpCuseInit Opcode = 4096
)

var opcodeNames = map[Opcode]string{
	OpLookup: "LOOKUP", OpForget: "FORGET", OpGetattr: "GETATTR",
	OpSetattr: "SETATTR", OpReadlink: "READLINK", OpSymlink: "SYMLINK",
	OpMknod: "MKNOD", OpMkdir: "MKDIR", OpUnlink: "UNLINK", OpRmdir: "RMDIR",
	OpRename: "RENAME", OpLink: "LINK", OpOpen: "OPEN", OpRead: "READ",
	OpWrite: "WRITE", OpStatfs: "STATFS", OpRelease: "RELEASE",
	OpFsync: "FSYNC", OpSetxattr: "SETXATTR", OpGetxattr: "GETXATTR",
	OpListxattr: "LISTXATTR", OpRemovexattr: "REMOVEXATTR", OpFlush: "FLUSH",
	OpInit: "INIT", OpOpendir: "OPENDIR", OpReaddir: "READDIR",
	OpReleasedir: "RELEASEDIR", OpFsyncdir: "FSYNCDIR", OpGetlk: "GETLK",
	OpSetlk: "SETLK", OpSetlkw: "SETLKW", OpAccess: "ACCESS",
	OpCreate: "CREATE", OpInterrupt: "INTERRUPT", OpBmap: "BMAP",
	OpDestroy: "DESTROY", OpIoctl: "IOCTL", OpPoll: "POLL",
	OpNotifyReply: "NOTIFY_REPLY", OpBatchForget: "BATCH_FORGET",
	OpFallocate: "FALLOCATE", OpSetvolname: "SETVOLNAME",
	OpGetxtimes: "GETXTIMES", OpExchange: "EXCHANGE",
	OpCuseInit: "CUSE_INIT",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Opcode(%d)", uint32(o))
}

// Init flags, negotiated in InitIn.Flags / InitOut.Flags.
const (
	InitAsyncRead       = 1 << 0
	InitPosixLocks      = 1 << 1
	InitFileOps         = 1 << 2
	InitAtomicOTrunc    = 1 << 3
	InitExportSupport   = 1 << 4
	InitBigWrites       = 1 << 5
	InitDontMask        = 1 << 6
	InitCaseInsensitive = 1 << 29 // macOS.
	InitVolRename       = 1 << 30 // macOS.
	InitXtimes          = 1 << 31 // macOS.
	InitWritebackCache  = 1 << 16
	InitNoOpenSupport   = 1 << 17
	InitParallelDirOps  = 1 << 18
	InitNoOpendirSupport = 1 << 24
)

// Release flags, in ReleaseIn.ReleaseFlags.
const (
	ReleaseFlush       = 1 << 0
	ReleaseFlockUnlock = 1 << 1
)

// Attribute validity bitmask used in SetattrIn.Valid.
const (
	FattrMode     = 1 << 0
	FattrUid      = 1 << 1
	FattrGid      = 1 << 2
	FattrSize     = 1 << 3
	FattrAtime    = 1 << 4
	FattrMtime    = 1 << 5
	FattrFh       = 1 << 6
	FattrAtimeNow = 1 << 7
	FattrMtimeNow = 1 << 8
	FattrLockOwner = 1 << 9
	FattrCtime    = 1 << 10
)

// RootID is the fixed inode number of the mount point.
const RootID = 1

// Every request begins with this 8-field, 40-byte header.
type InHeader struct {
	Len     uint32
	Opcode  Opcode
	Unique  uint64
	Nodeid  uint64
	Uid     uint32
	Gid     uint32
	Pid     uint32
	Padding uint32
}

// Every reply begins with this 3-field, 16-byte header.
type OutHeader struct {
	Len    uint32
	Error  int32
	Unique uint64
}

type InitIn struct {
	Major        uint32
	Minor        uint32
	MaxReadahead uint32
	Flags        uint32
}

type InitOut struct {
	Major        uint32
	Minor        uint32
	MaxReadahead uint32
	Flags        uint32
	MaxBackground     uint16
	CongestionThreshold uint16
	MaxWrite     uint32
	TimeGran     uint32
	Unused       [9]uint32
}

type Timespec struct {
	Sec  uint64
	Nsec uint32
}

// Attr mirrors fuse_attr: the on-wire shape of a file attribute record.
type Attr struct {
	Ino       uint64
	Size      uint64
	Blocks    uint64
	Atime     uint64
	Mtime     uint64
	Ctime     uint64
	AtimeNsec uint32
	MtimeNsec uint32
	CtimeNsec uint32
	Mode      uint32
	Nlink     uint32
	Uid       uint32
	Gid       uint32
	Rdev      uint32
	Blksize   uint32
	Padding   uint32
	// Crtime/CrtimeNsec and Flags are appended on Darwin (xtimes support);
	// kept here unconditionally for layout simplicity. On Linux they are left
	// off the wire (see attrSize), and the fuse package's convertAttributes
	// never sets them.
	Crtime     uint64
	CrtimeNsec uint32
	Flags      uint32
}

type EntryOut struct {
	Nodeid         uint64
	Generation     uint64
	EntryValid     uint64
	AttrValid      uint64
	EntryValidNsec uint32
	AttrValidNsec  uint32
	Attr           Attr
}

type AttrOut struct {
	AttrValid     uint64
	AttrValidNsec uint32
	Dummy         uint32
	Attr          Attr
}

// attrSizeLinux is sizeof(fuse_attr) on Linux: the Crtime/CrtimeNsec/Flags
// xtimes fields that follow in Attr are a Darwin-only wire addition and must
// not be counted here.
const attrSizeLinux = uintptr(unsafe.Offsetof(Attr{}.Crtime))

// attrSize returns the number of Attr's leading bytes that belong on the
// wire for the running kernel: all of it on Darwin (xtimes support), only
// the Linux-shaped prefix everywhere else.
func attrSize() uintptr {
	if runtime.GOOS == "darwin" {
		return unsafe.Sizeof(Attr{})
	}
	return attrSizeLinux
}

// AttrOutSize returns the wire size of an AttrOut reply for p: the fixed
// AttrOut header plus the platform-appropriate Attr size, never the full
// unsafe.Sizeof(AttrOut{}) (which always includes the Darwin xtimes fields).
func AttrOutSize(p Protocol) uintptr {
	return uintptr(unsafe.Offsetof(AttrOut{}.Attr)) + attrSize()
}

// EntryOutSize returns the wire size of an EntryOut reply for p, by the same
// reasoning as AttrOutSize.
func EntryOutSize(p Protocol) uintptr {
	return uintptr(unsafe.Offsetof(EntryOut{}.Attr)) + attrSize()
}

type MkdirIn struct {
	Mode    uint32
	Umask   uint32
}

type MknodIn struct {
	Mode    uint32
	Rdev    uint32
	Umask   uint32
	Padding uint32
}

type RenameIn struct {
	Newdir uint64
}

type LinkIn struct {
	Oldnodeid uint64
}

type SetattrIn struct {
	Valid     uint32
	Padding   uint32
	Fh        uint64
	Size      uint64
	LockOwner uint64
	Atime     uint64
	Mtime     uint64
	Unused2   uint64
	AtimeNsec uint32
	MtimeNsec uint32
	Unused3   uint32
	Mode      uint32
	Unused4   uint32
	Uid       uint32
	Gid       uint32
	Unused5   uint32
}

type OpenIn struct {
	Flags  uint32
	Unused uint32
}

type OpenOut struct {
	Fh        uint64
	OpenFlags uint32
	Padding   uint32
}

type CreateIn struct {
	Flags uint32
	Mode  uint32
	Umask uint32
	Padding uint32
}

type ReleaseIn struct {
	Fh           uint64
	Flags        uint32
	ReleaseFlags uint32
	LockOwner    uint64
}

type ReadIn struct {
	Fh        uint64
	Offset    uint64
	Size      uint32
	ReadFlags uint32
	LockOwner uint64
	Flags     uint32
	Padding   uint32
}

type WriteIn struct {
	Fh         uint64
	Offset     uint64
	Size       uint32
	WriteFlags uint32
	LockOwner  uint64
	Flags      uint32
	Padding    uint32
}

type WriteOut struct {
	Size    uint32
	Padding uint32
}

type FsyncIn struct {
	Fh         uint64
	FsyncFlags uint32
	Padding    uint32
}

type FallocateIn struct {
	Fh      uint64
	Offset  uint64
	Length  uint64
	Mode    uint32
	Padding uint32
}

type StatfsOut struct {
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Bsize   uint32
	Namelen uint32
	Frsize  uint32
	Padding uint32
	Spare   [6]uint32
}

type GetxattrIn struct {
	Size    uint32
	Padding uint32
}

type GetxattrOut struct {
	Size    uint32
	Padding uint32
}

type SetxattrIn struct {
	Size  uint32
	Flags uint32
}

type ForgetIn struct {
	Nlookup uint64
}

// ForgetOne is one element of a BATCH_FORGET request body.
type ForgetOne struct {
	NodeID  uint64
	Nlookup uint64
}

type BatchForgetIn struct {
	Count uint32
	Dummy uint32
}

type InterruptIn struct {
	Unique uint64
}

type LkIn struct {
	Fh    uint64
	Owner uint64
	Lk    FileLock
	LkFlags uint32
	Padding uint32
}

type LkOut struct {
	Lk FileLock
}

type FileLock struct {
	Start uint64
	End   uint64
	Type  uint32
	Pid   uint32
}

type BmapIn struct {
	Block     uint64
	Blocksize uint32
	Padding   uint32
}

type BmapOut struct {
	Block uint64
}

type AccessIn struct {
	Mask    uint32
	Padding uint32
}

// Dirent mirrors fuse_dirent: directory entry header followed by the
// (unpadded) name; consumers must pad to DirentAlignment.
type Dirent struct {
	Ino     uint64
	Off     uint64
	Namelen uint32
	Type    uint32
}

const DirentAlignment = 8
const DirentSize = 8 + 8 + 4 + 4

// File types for Dirent.Type / Attr.Mode >> 12, matching the low 4 bits of
// POSIX st_mode >> 12 (DT_* from <dirent.h>).
const (
	DTUnknown  = 0
	DTFifo     = 1
	DTChr      = 2
	DTDir      = 4
	DTBlk      = 6
	DTReg      = 8
	DTLnk      = 10
	DTSock     = 12
	DTWht      = 14
)
