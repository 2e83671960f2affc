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
	"unsafe"

	"github.com/arfuse/fuse/fuseops"
)

// WriteDirent writes the supplied directory entry into the given buffer in
// the format expected in fuseops.ReadDirOp.Data, returning the number of
// bytes written. Returns zero if the entry would not fit, in which case the
// caller should stop and return what it has so far: the kernel's
// parse_dirfile tolerates a final, truncated record being absent.
func WriteDirent(buf []byte, d fuseops.Dirent) (n int) {
	// We want to write bytes with the layout of fuse_dirent
	// (http://goo.gl/BmFxob) in host order. The struct must be aligned
	// according to FUSE_DIRENT_ALIGN (http://goo.gl/UziWvH), which dictates
	// 8-byte alignment.
	type fuseDirent struct {
		ino     uint64
		off     uint64
		namelen uint32
		type_   uint32
	}

	const direntAlignment = 8
	const direntSize = 8 + 8 + 4 + 4

	// Compute the number of bytes of padding we'll need to maintain alignment
	// for the next entry.
	var padLen int
	if len(d.Name)%direntAlignment != 0 {
		padLen = direntAlignment - (len(d.Name) % direntAlignment)
	}

	// Do we have enough room?
	totalLen := direntSize + len(d.Name) + padLen
	if totalLen > len(buf) {
		return n
	}

	// Write the header into an aligned temporary, then copy out, since buf
	// itself may not be 8-byte aligned.
	de := fuseDirent{
		ino:     uint64(d.Inode),
		off:     uint64(d.Offset),
		namelen: uint32(len(d.Name)),
		type_:   uint32(d.Type),
	}
	n += copy(buf[n:], (*[direntSize]byte)(unsafe.Pointer(&de))[:])

	// Write the name afterward.
	n += copy(buf[n:], d.Name)

	// Add any necessary padding.
	if padLen != 0 {
		var padding [direntAlignment]byte
		n += copy(buf[n:], padding[:padLen])
	}

	return n
}

// DirentListBuilder accumulates a sequence of directory entries into the
// wire format expected by fuseops.ReadDirOp.Data, stopping (without error)
// once an entry no longer fits within the budget passed to Init.
type DirentListBuilder struct {
	buf      []byte
	n        int
	overflow bool
}

// Init prepares b to fill in up to size bytes.
func (b *DirentListBuilder) Init(size int) {
	b.buf = make([]byte, size)
	b.n = 0
	b.overflow = false
}

// Add appends d to the listing being built. Returns false (and records the
// overflow) if d did not fit; callers should stop calling Add after the
// first false return, since directory order must be preserved.
func (b *DirentListBuilder) Add(d fuseops.Dirent) bool {
	if b.overflow {
		return false
	}

	written := WriteDirent(b.buf[b.n:], d)
	if written == 0 {
		b.overflow = true
		return false
	}

	b.n += written
	return true
}

// Done returns the accumulated bytes, ready to assign to
// fuseops.ReadDirOp.Data.
func (b *DirentListBuilder) Done() []byte {
	return b.buf[:b.n]
}
