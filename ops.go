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

package fuse

import (
	"os"
	"time"
	"unsafe"

	"github.com/arfuse/fuse/fuseops"
	"github.com/arfuse/fuse/internal/buffer"
	"github.com/arfuse/fuse/internal/fusekernel"
)

// POSIX file-type bits, packed into the upper bits of fusekernel.Attr.Mode
// alongside the low 12 permission bits. The os.FileMode bit layout is
// different and Go-specific, so this package converts explicitly rather
// than reusing it on the wire.
const (
	sIFIFO  = 0010000
	sIFCHR  = 0020000
	sIFDIR  = 0040000
	sIFBLK  = 0060000
	sIFREG  = 0100000
	sIFLNK  = 0120000
	sIFSOCK = 0140000
)

func encodeMode(m os.FileMode) uint32 {
	perm := uint32(m.Perm())
	switch {
	case m&os.ModeDir != 0:
		return sIFDIR | perm
	case m&os.ModeSymlink != 0:
		return sIFLNK | perm
	case m&os.ModeSocket != 0:
		return sIFSOCK | perm
	case m&os.ModeNamedPipe != 0:
		return sIFIFO | perm
	case m&os.ModeDevice != 0:
		if m&os.ModeCharDevice != 0 {
			return sIFCHR | perm
		}
		return sIFBLK | perm
	default:
		return sIFREG | perm
	}
}

// convertExpirationTime converts an absolute expiration time to the
// (seconds, nanoseconds) pair the kernel expects, clamping negative
// durations (an already-past expiration) to zero rather than wrapping.
func convertExpirationTime(t time.Time) (sec uint64, nsec uint32) {
	d := t.Sub(time.Now())
	if d < 0 {
		return 0, 0
	}
	sec = uint64(d / time.Second)
	nsec = uint32(d % time.Second)
	return
}

func convertAttributes(inode fuseops.InodeID, attr *fuseops.InodeAttributes, out *fusekernel.Attr) {
	out.Ino = uint64(inode)
	out.Size = attr.Size
	out.Nlink = attr.Nlink
	out.Mode = encodeMode(attr.Mode)
	out.Uid = attr.Uid
	out.Gid = attr.Gid

	out.Atime = uint64(attr.Atime.Unix())
	out.AtimeNsec = uint32(attr.Atime.Nanosecond())
	out.Mtime = uint64(attr.Mtime.Unix())
	out.MtimeNsec = uint32(attr.Mtime.Nanosecond())
	out.Ctime = uint64(attr.Ctime.Unix())
	out.CtimeNsec = uint32(attr.Ctime.Nanosecond())

	if attr.Size > 0 {
		out.Blocks = (attr.Size + 511) / 512
	}
	out.Blksize = 4096
}

func convertChildInodeEntry(entry *fuseops.ChildInodeEntry, out *fusekernel.EntryOut) {
	out.Nodeid = uint64(entry.Child)
	out.Generation = entry.Generation
	out.EntryValid, out.EntryValidNsec = convertExpirationTime(entry.EntryExpiration)
	out.AttrValid, out.AttrValidNsec = convertExpirationTime(entry.AttributesExpiration)
	convertAttributes(entry.Child, &entry.Attributes, &out.Attr)
}

func grow[T any](b *buffer.OutMessage) *T {
	var zero T
	return (*T)(unsafe.Pointer(&b.Grow(int(unsafe.Sizeof(zero)))[0]))
}

// growEntryOut and growAttrOut grow b by only the wire size of an
// EntryOut/AttrOut record under protocol p, not unsafe.Sizeof(EntryOut{})
// or unsafe.Sizeof(AttrOut{}): fusekernel.Attr carries the Darwin-only
// xtimes fields unconditionally for layout simplicity, and growing the full
// Go struct size would send 16 bytes the Linux kernel never asked for,
// which copy_out_args rejects with -EINVAL. convertChildInodeEntry and
// convertAttributes never touch those trailing fields, so it's safe to hand
// back a pointer typed at the full struct over a shorter allocation.
func growEntryOut(b *buffer.OutMessage, p fusekernel.Protocol) *fusekernel.EntryOut {
	return (*fusekernel.EntryOut)(unsafe.Pointer(&b.Grow(int(fusekernel.EntryOutSize(p)))[0]))
}

func growAttrOut(b *buffer.OutMessage, p fusekernel.Protocol) *fusekernel.AttrOut {
	return (*fusekernel.AttrOut)(unsafe.Pointer(&b.Grow(int(fusekernel.AttrOutSize(p)))[0]))
}

// kernelResponse builds the reply payload for op into outMsg (already Reset)
// given the file system's result opErr, and reports whether the kernel
// expects no reply at all (FORGET, BATCH_FORGET) along with the errno to
// finalize the header with.
func (c *Connection) kernelResponse(
	outMsg *buffer.OutMessage,
	op fuseops.Op,
	opErr error) (noResponse bool, errno int32) {
	switch op.(type) {
	case *fuseops.ForgetInodeOp, *fuseops.BatchForgetOp:
		return true, 0
	}

	if opErr != nil {
		return false, errnoFromError(opErr)
	}

	switch o := op.(type) {
	case *fuseops.InitOp:
		out := grow[fusekernel.InitOut](outMsg)
		*out = fusekernel.InitOut{}
		out.Major = c.protocol.Major
		out.Minor = c.protocol.Minor
		out.MaxReadahead = maxReadahead
		out.MaxWrite = buffer.MaxWriteSize

		// Each capability is only ever claimed if the kernel advertised it in
		// InitIn.Flags; the negotiated flags sent back must be a subset of
		// what the kernel offered, never a superset.
		flags := uint32(fusekernel.InitBigWrites)
		if c.cfg.EnableAsyncReads {
			flags |= fusekernel.InitAsyncRead
		}
		if !c.cfg.DisableWritebackCaching {
			flags |= fusekernel.InitWritebackCache
		}
		if c.cfg.EnableNoOpenSupport {
			flags |= fusekernel.InitNoOpenSupport
		}
		if c.cfg.EnableNoOpendirSupport {
			flags |= fusekernel.InitNoOpendirSupport
		}
		if c.cfg.EnableParallelDirOps {
			flags |= fusekernel.InitParallelDirOps
		}
		out.Flags = flags & o.Flags

	case *fuseops.DestroyOp:
		// No payload.

	case *fuseops.LookUpInodeOp:
		out := growEntryOut(outMsg, c.protocol)
		convertChildInodeEntry(&o.Entry, out)

	case *fuseops.GetInodeAttributesOp:
		out := growAttrOut(outMsg, c.protocol)
		out.AttrValid, out.AttrValidNsec = convertExpirationTime(o.AttributesExpiration)
		convertAttributes(o.Inode, &o.Attributes, &out.Attr)

	case *fuseops.SetInodeAttributesOp:
		out := growAttrOut(outMsg, c.protocol)
		out.AttrValid, out.AttrValidNsec = convertExpirationTime(o.AttributesExpiration)
		convertAttributes(o.Inode, &o.Attributes, &out.Attr)

	case *fuseops.MkDirOp:
		out := growEntryOut(outMsg, c.protocol)
		convertChildInodeEntry(&o.Entry, out)

	case *fuseops.MkNodOp:
		out := growEntryOut(outMsg, c.protocol)
		convertChildInodeEntry(&o.Entry, out)

	case *fuseops.CreateFileOp:
		e := growEntryOut(outMsg, c.protocol)
		convertChildInodeEntry(&o.Entry, e)
		oo := grow[fusekernel.OpenOut](outMsg)
		*oo = fusekernel.OpenOut{}
		oo.Fh = uint64(o.Handle)

	case *fuseops.RmDirOp, *fuseops.UnlinkOp, *fuseops.RenameOp:
		// No payload.

	case *fuseops.LinkOp:
		out := growEntryOut(outMsg, c.protocol)
		convertChildInodeEntry(&o.Entry, out)

	case *fuseops.OpenDirOp:
		out := grow[fusekernel.OpenOut](outMsg)
		*out = fusekernel.OpenOut{}
		out.Fh = uint64(o.Handle)

	case *fuseops.ReadDirOp:
		outMsg.Append(o.Data)

	case *fuseops.ReleaseDirHandleOp:
		// No payload.

	case *fuseops.OpenFileOp:
		out := grow[fusekernel.OpenOut](outMsg)
		*out = fusekernel.OpenOut{}
		out.Fh = uint64(o.Handle)

	case *fuseops.ReadFileOp:
		outMsg.Append(o.Data)

	case *fuseops.WriteFileOp:
		out := grow[fusekernel.WriteOut](outMsg)
		*out = fusekernel.WriteOut{}
		out.Size = uint32(len(o.Data))

	case *fuseops.SyncFileOp, *fuseops.FlushFileOp, *fuseops.ReleaseFileHandleOp, *fuseops.FallocateOp:
		// No payload.

	case *fuseops.StatFSOp:
		out := grow[fusekernel.StatfsOut](outMsg)
		*out = fusekernel.StatfsOut{}
		out.Blocks = o.Blocks
		out.Bfree = o.BlocksFree
		out.Bavail = o.BlocksAvailable
		out.Files = o.Files
		out.Ffree = o.FilesFree
		out.Bsize = o.BlockSize
		out.Frsize = o.IOSize
		out.Namelen = 255

	case *fuseops.GetXattrOp:
		if o.Size == 0 {
			out := grow[fusekernel.GetxattrOut](outMsg)
			out.Size = uint32(len(o.Data))
		} else {
			outMsg.Append(o.Data)
		}

	case *fuseops.ListXattrOp:
		if o.Size == 0 {
			out := grow[fusekernel.GetxattrOut](outMsg)
			out.Size = uint32(len(o.Data))
		} else {
			outMsg.Append(o.Data)
		}

	case *fuseops.SetXattrOp, *fuseops.RemoveXattrOp, *fuseops.AccessOp:
		// No payload.

	case *fuseops.ReadSymlinkOp:
		outMsg.AppendString(o.Target)

	case *fuseops.InterruptOp, *fuseops.UnknownOp:
		// Never reached with opErr == nil; the session always replies ENOSYS
		// to these without consulting the FileSystem.
	}

	return false, 0
}
