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

package buffer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/arfuse/fuse/internal/fusekernel"
)

// ErrShortMessage is returned by Init when fewer bytes were read than the
// fixed InHeader size, so no unique id can be recovered. Per spec, such a
// message is dropped silently rather than answered.
var ErrShortMessage = errors.New("fuse: message shorter than header")

// MalformedMessageError is returned once the header (and therefore
// Unique) has been decoded successfully but the message is otherwise
// malformed: the declared length exceeds the bytes read, or the opcode is
// zero. The session answers these with EIO using Unique.
type MalformedMessageError struct {
	Unique uint64
	Reason string
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("fuse: malformed message (unique=%d): %s", e.Unique, e.Reason)
}

// An incoming message from the kernel, including leading fusekernel.InHeader
// struct. Provides storage for messages and convenient access to their
// contents as a cursor over a borrowed byte slice: Consume-family methods
// advance the cursor without copying the remainder.
//
// Must not be used concurrently. May be reused across calls to Init; the
// fuse package's Connection allocates a fresh one for each message read.
type InMessage struct {
	header fusekernel.InHeader
	raw    []byte
	offset int
}

// Initialize with the data read by a single call to r.Read. The first call to
// Consume will consume the bytes directly after the fusekernel.InHeader
// struct.
func (m *InMessage) Init(r io.Reader) (err error) {
	if cap(m.raw) < BufferSize {
		m.raw = make([]byte, BufferSize)
	}
	m.raw = m.raw[:cap(m.raw)]

	n, err := r.Read(m.raw)
	if err != nil {
		return err
	}
	m.raw = m.raw[:n]

	const headerSize = int(unsafe.Sizeof(fusekernel.InHeader{}))
	if n < headerSize {
		return ErrShortMessage
	}

	// Copy into an aligned temporary rather than reinterpret the (possibly
	// misaligned) slice backing array in place.
	var hdr fusekernel.InHeader
	copy((*[headerSize]byte)(unsafe.Pointer(&hdr))[:], m.raw[:headerSize])
	m.header = hdr

	if int(m.header.Len) > n {
		return &MalformedMessageError{
			Unique: hdr.Unique,
			Reason: fmt.Sprintf("header declares length %d, only %d bytes read", m.header.Len, n),
		}
	}
	if m.header.Opcode == 0 {
		return &MalformedMessageError{Unique: hdr.Unique, Reason: "opcode 0 is not a valid request"}
	}

	m.offset = headerSize
	return nil
}

// Return a reference to the header read in the most recent call to Init.
func (m *InMessage) Header() (h *fusekernel.InHeader) {
	return &m.header
}

// Len reports how many bytes remain unconsumed after the header.
func (m *InMessage) Len() int {
	return len(m.raw) - m.offset
}

// Consume the next n bytes from the message, returning a nil pointer if there
// are fewer than n bytes available.
func (m *InMessage) Consume(n uintptr) (p unsafe.Pointer) {
	b := m.ConsumeBytes(n)
	if b == nil {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

// Equivalent to Consume, except returns a slice of bytes. The result will be
// nil if Consume fails.
func (m *InMessage) ConsumeBytes(n uintptr) (b []byte) {
	if uintptr(m.Len()) < n {
		return nil
	}
	b = m.raw[m.offset : m.offset+int(n)]
	m.offset += int(n)
	return b
}

// ConsumeString consumes a NUL-terminated string, advancing the cursor past
// the terminator. ok is false if no NUL byte remains in the buffer.
func (m *InMessage) ConsumeString() (s string, ok bool) {
	rest := m.raw[m.offset:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return "", false
	}
	s = string(rest[:i])
	m.offset += i + 1
	ok = true
	return
}

// FetchRecord copies the next sizeof(*out) bytes into an aligned value of
// type T, tolerating unaligned input by never dereferencing the source
// slice directly. Returns false if insufficient bytes remain.
func FetchRecord[T any](m *InMessage, out *T) bool {
	size := unsafe.Sizeof(*out)
	b := m.ConsumeBytes(size)
	if b == nil {
		return false
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(out)), size), b)
	return true
}
