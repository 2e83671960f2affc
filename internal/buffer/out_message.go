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
	"fmt"
	"unsafe"

	"github.com/arfuse/fuse/internal/fusekernel"
)

// OutMessageHeaderSize is the size of the leading header in every
// properly-constructed OutMessage. Reset brings the message back to this
// size.
const OutMessageHeaderSize = int(unsafe.Sizeof(fusekernel.OutHeader{}))

// OutMessage accumulates a single contiguous fuse reply: a leading
// fusekernel.OutHeader followed by zero or more payload segments. Every
// reply, READ results and directory listings included, is filled into
// header+payload below and sent as the single contiguous slice returned by
// Bytes, satisfying the "one reply is one write" contract.
//
// Must be initialized with Reset before (re)use.
type OutMessage struct {
	header  fusekernel.OutHeader
	payload []byte

	// Sglist is cleared by Reset; nothing in this module populates it, and
	// the fuse package's Connection never reads it when sending a reply.
	Sglist [][]byte
}

// Reset resets m so that it's ready to be used again. Afterward, the
// contents are solely a zeroed fusekernel.OutHeader struct.
func (m *OutMessage) Reset() {
	m.header = fusekernel.OutHeader{}
	m.payload = m.payload[:0]
	m.Sglist = nil
}

// OutHeader returns a pointer to the header at the start of the message.
func (m *OutMessage) OutHeader() *fusekernel.OutHeader {
	return &m.header
}

// Append grows m's payload by len(src) bytes, copying src over the new
// segment.
func (m *OutMessage) Append(src []byte) {
	m.payload = append(m.payload, src...)
}

// AppendString is like Append, but accepts string input.
func (m *OutMessage) AppendString(src string) {
	m.payload = append(m.payload, src...)
}

// Grow grows m's payload by n zeroed bytes, returning a slice over the new
// segment so the caller can fill it in place (e.g. to copy a fixed-layout
// record via FetchRecord's inverse).
func (m *OutMessage) Grow(n int) []byte {
	old := len(m.payload)
	m.payload = append(m.payload, make([]byte, n)...)
	return m.payload[old : old+n]
}

// Len returns the current size of the message, including the leading
// header.
func (m *OutMessage) Len() int {
	return OutMessageHeaderSize + len(m.payload)
}

// Bytes returns the header and payload as one contiguous slice, copying the
// header into place first. Used for the non-scatter write path.
func (m *OutMessage) Bytes() []byte {
	b := make([]byte, OutMessageHeaderSize+len(m.payload))
	headerBytes := (*[1 << 30]byte)(unsafe.Pointer(&m.header))[:OutMessageHeaderSize:OutMessageHeaderSize]
	copy(b, headerBytes)
	copy(b[OutMessageHeaderSize:], m.payload)
	return b
}

// OutHeaderBytes returns just the header, for zero-payload replies (errors,
// and kernel-expected-empty successes).
func (m *OutMessage) OutHeaderBytes() []byte {
	b := make([]byte, OutMessageHeaderSize)
	headerBytes := (*[1 << 30]byte)(unsafe.Pointer(&m.header))[:OutMessageHeaderSize:OutMessageHeaderSize]
	copy(b, headerBytes)
	return b
}

// Finalize sets the header's Len field to the message's current total size
// and its Unique/Error fields as given. It must be called exactly once,
// immediately before the message is handed to the channel for sending.
func (m *OutMessage) Finalize(unique uint64, errno int32) {
	m.header.Unique = unique
	m.header.Error = errno
	if errno != 0 {
		// An error reply carries no payload per the FUSE ABI.
		m.payload = m.payload[:0]
	}
	m.header.Len = uint32(m.Len())
}

// String is used in debug logging.
func (m *OutMessage) String() string {
	return fmt.Sprintf("OutMessage{len=%d, error=%d, unique=%d}", m.header.Len, m.header.Error, m.header.Unique)
}
