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
	"fmt"
	"os"
	"time"

	"github.com/arfuse/fuse/internal/buffer"
	"github.com/arfuse/fuse/internal/fusekernel"
)

// Convert decodes the body of m (the header has already been consumed by
// the caller) into an Op of the type appropriate for m.Header().Opcode.
// Returns an error if the message is malformed; never returns a nil Op and
// a nil error.
//
// This function is an implementation detail of the fuse package, and must
// not be called by anyone else.
func Convert(m *buffer.InMessage) (Op, error) {
	h := m.Header()
	oh := OpHeader{Uid: h.Uid, Gid: h.Gid, Pid: h.Pid}
	inode := InodeID(h.Nodeid)

	switch h.Opcode {
	case fusekernel.OpInit:
		var in fusekernel.InitIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &InitOp{
			Header: oh,
			Kernel: fusekernel.Protocol{Major: in.Major, Minor: in.Minor},
			Flags:  in.Flags,
		}, nil

	case fusekernel.OpDestroy:
		return &DestroyOp{Header: oh}, nil

	case fusekernel.OpLookup:
		name, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		return &LookUpInodeOp{Header: oh, Parent: inode, Name: name}, nil

	case fusekernel.OpGetattr:
		return &GetInodeAttributesOp{Header: oh, Inode: inode}, nil

	case fusekernel.OpSetattr:
		var in fusekernel.SetattrIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		op := &SetInodeAttributesOp{Header: oh, Inode: inode}
		if in.Valid&fusekernel.FattrSize != 0 {
			size := in.Size
			op.Size = &size
		}
		if in.Valid&fusekernel.FattrMode != 0 {
			mode := os.FileMode(in.Mode & 0777)
			op.Mode = &mode
		}
		if in.Valid&(fusekernel.FattrAtime|fusekernel.FattrAtimeNow) != 0 {
			t := decodeTime(in.Atime, in.AtimeNsec)
			op.Atime = &t
		}
		if in.Valid&(fusekernel.FattrMtime|fusekernel.FattrMtimeNow) != 0 {
			t := decodeTime(in.Mtime, in.MtimeNsec)
			op.Mtime = &t
		}
		return op, nil

	case fusekernel.OpForget:
		var in fusekernel.ForgetIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &ForgetInodeOp{Header: oh, Inode: inode, N: in.Nlookup}, nil

	case fusekernel.OpBatchForget:
		var in fusekernel.BatchForgetIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		entries := make([]ForgetInodeEntry, 0, in.Count)
		for i := uint32(0); i < in.Count; i++ {
			var one fusekernel.ForgetOne
			if !buffer.FetchRecord(m, &one) {
				return nil, malformed(h.Opcode)
			}
			entries = append(entries, ForgetInodeEntry{
				Inode: InodeID(one.NodeID),
				N:     one.Nlookup,
			})
		}
		return &BatchForgetOp{Header: oh, Entries: entries}, nil

	case fusekernel.OpMkdir:
		var in fusekernel.MkdirIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		name, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		return &MkDirOp{
			Header: oh,
			Parent: inode,
			Name:   name,
			Mode:   os.FileMode(in.Mode & 0777),
		}, nil

	case fusekernel.OpMknod:
		var in fusekernel.MknodIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		name, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		return &MkNodOp{
			Header: oh,
			Parent: inode,
			Name:   name,
			Mode:   os.FileMode(in.Mode & 0777),
			Rdev:   in.Rdev,
		}, nil

	case fusekernel.OpCreate:
		var in fusekernel.CreateIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		name, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		return &CreateFileOp{
			Header: oh,
			Parent: inode,
			Name:   name,
			Mode:   os.FileMode(in.Mode & 0777),
			Flags:  int(in.Flags),
		}, nil

	case fusekernel.OpRmdir:
		name, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		return &RmDirOp{Header: oh, Parent: inode, Name: name}, nil

	case fusekernel.OpUnlink:
		name, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		return &UnlinkOp{Header: oh, Parent: inode, Name: name}, nil

	case fusekernel.OpRename:
		var in fusekernel.RenameIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		oldName, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		newName, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		return &RenameOp{
			Header:    oh,
			OldParent: inode,
			OldName:   oldName,
			NewParent: InodeID(in.Newdir),
			NewName:   newName,
		}, nil

	case fusekernel.OpLink:
		var in fusekernel.LinkIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		name, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		return &LinkOp{
			Header: oh,
			Parent: inode,
			Name:   name,
			Target: InodeID(in.Oldnodeid),
		}, nil

	case fusekernel.OpOpendir:
		var in fusekernel.OpenIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &OpenDirOp{Header: oh, Inode: inode, Flags: int(in.Flags)}, nil

	case fusekernel.OpReaddir:
		var in fusekernel.ReadIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &ReadDirOp{
			Header: oh,
			Inode:  inode,
			Handle: HandleID(in.Fh),
			Offset: DirOffset(in.Offset),
			Size:   int(in.Size),
		}, nil

	case fusekernel.OpReleasedir:
		var in fusekernel.ReleaseIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &ReleaseDirHandleOp{Header: oh, Inode: inode, Handle: HandleID(in.Fh)}, nil

	case fusekernel.OpOpen:
		var in fusekernel.OpenIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &OpenFileOp{Header: oh, Inode: inode, Flags: int(in.Flags)}, nil

	case fusekernel.OpRead:
		var in fusekernel.ReadIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &ReadFileOp{
			Header: oh,
			Inode:  inode,
			Handle: HandleID(in.Fh),
			Offset: int64(in.Offset),
			Size:   int(in.Size),
		}, nil

	case fusekernel.OpWrite:
		var in fusekernel.WriteIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		data := m.ConsumeBytes(uintptr(in.Size))
		if data == nil {
			return nil, malformed(h.Opcode)
		}
		return &WriteFileOp{
			Header: oh,
			Inode:  inode,
			Handle: HandleID(in.Fh),
			Offset: int64(in.Offset),
			Data:   data,
		}, nil

	case fusekernel.OpFsync:
		var in fusekernel.FsyncIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &SyncFileOp{Header: oh, Inode: inode, Handle: HandleID(in.Fh)}, nil

	case fusekernel.OpFallocate:
		var in fusekernel.FallocateIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &FallocateOp{
			Header: oh,
			Inode:  inode,
			Handle: HandleID(in.Fh),
			Offset: in.Offset,
			Length: in.Length,
			Mode:   in.Mode,
		}, nil

	case fusekernel.OpFsyncdir:
		var in fusekernel.FsyncIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &SyncFileOp{Header: oh, Inode: inode, Handle: HandleID(in.Fh)}, nil

	case fusekernel.OpFlush:
		var in fusekernel.FsyncIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &FlushFileOp{Header: oh, Inode: inode, Handle: HandleID(in.Fh)}, nil

	case fusekernel.OpRelease:
		var in fusekernel.ReleaseIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &ReleaseFileHandleOp{
			Header:         oh,
			Inode:          inode,
			Handle:         HandleID(in.Fh),
			FlushOnRelease: in.ReleaseFlags&fusekernel.ReleaseFlush != 0,
			UnlockFlock:    in.ReleaseFlags&fusekernel.ReleaseFlockUnlock != 0,
		}, nil

	case fusekernel.OpStatfs:
		return &StatFSOp{Header: oh}, nil

	case fusekernel.OpGetxattr:
		var in fusekernel.GetxattrIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		name, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		return &GetXattrOp{Header: oh, Inode: inode, Name: name, Size: int(in.Size)}, nil

	case fusekernel.OpListxattr:
		var in fusekernel.GetxattrIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &ListXattrOp{Header: oh, Inode: inode, Size: int(in.Size)}, nil

	case fusekernel.OpSetxattr:
		var in fusekernel.SetxattrIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		name, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		value := m.ConsumeBytes(uintptr(in.Size))
		if value == nil {
			return nil, malformed(h.Opcode)
		}
		return &SetXattrOp{Header: oh, Inode: inode, Name: name, Value: value, Flags: in.Flags}, nil

	case fusekernel.OpRemovexattr:
		name, ok := m.ConsumeString()
		if !ok {
			return nil, malformed(h.Opcode)
		}
		return &RemoveXattrOp{Header: oh, Inode: inode, Name: name}, nil

	case fusekernel.OpAccess:
		var in fusekernel.AccessIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &AccessOp{Header: oh, Inode: inode, Mask: in.Mask}, nil

	case fusekernel.OpReadlink:
		return &ReadSymlinkOp{Header: oh, Inode: inode}, nil

	case fusekernel.OpInterrupt:
		var in fusekernel.InterruptIn
		if !buffer.FetchRecord(m, &in) {
			return nil, malformed(h.Opcode)
		}
		return &InterruptOp{Header: oh, FuseID: in.Unique}, nil

	default:
		return &UnknownOp{Header: oh, OpType: uint32(h.Opcode)}, nil
	}
}

func malformed(op fusekernel.Opcode) error {
	return fmt.Errorf("malformed %v message", op)
}

func decodeTime(sec uint64, nsec uint32) time.Time {
	return time.Unix(int64(sec), int64(nsec))
}
