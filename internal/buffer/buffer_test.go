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

package buffer_test

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/arfuse/fuse/internal/buffer"
	"github.com/arfuse/fuse/internal/fusekernel"
)

func encodeInHeader(h fusekernel.InHeader) []byte {
	const size = int(unsafe.Sizeof(fusekernel.InHeader{}))
	return (*[size]byte)(unsafe.Pointer(&h))[:]
}

func TestInMessageRoundTripsHeaderAndArgs(t *testing.T) {
	h := fusekernel.InHeader{
		Opcode: fusekernel.OpLookup,
		Unique: 42,
		Nodeid: 1,
	}

	var buf bytes.Buffer
	buf.Write(encodeInHeader(h))
	buf.WriteString("foo\x00")
	h.Len = uint32(buf.Len())

	// Re-encode with the final length.
	buf.Reset()
	buf.Write(encodeInHeader(h))
	buf.WriteString("foo\x00")

	var m buffer.InMessage
	if err := m.Init(&buf); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if m.Header().Opcode != fusekernel.OpLookup {
		t.Fatalf("opcode = %v", m.Header().Opcode)
	}
	if m.Header().Unique != 42 {
		t.Fatalf("unique = %v", m.Header().Unique)
	}

	name, ok := m.ConsumeString()
	if !ok || name != "foo" {
		t.Fatalf("ConsumeString = %q, %v", name, ok)
	}
}

func TestInMessageRejectsShortHeader(t *testing.T) {
	var m buffer.InMessage
	buf := bytes.NewReader([]byte{1, 2, 3})
	if err := m.Init(buf); err == nil {
		t.Fatalf("expected error for short header")
	}
}

func TestInMessageRejectsZeroOpcode(t *testing.T) {
	h := fusekernel.InHeader{Opcode: 0, Unique: 1}
	h.Len = uint32(unsafe.Sizeof(h))

	var m buffer.InMessage
	if err := m.Init(bytes.NewReader(encodeInHeader(h))); err == nil {
		t.Fatalf("expected error for opcode 0")
	}
}

func TestInMessageRejectsOverlongDeclaredLength(t *testing.T) {
	h := fusekernel.InHeader{Opcode: fusekernel.OpGetattr, Unique: 1}
	h.Len = uint32(unsafe.Sizeof(h)) + 100

	var m buffer.InMessage
	if err := m.Init(bytes.NewReader(encodeInHeader(h))); err == nil {
		t.Fatalf("expected error for declared length exceeding bytes read")
	}
}

func TestInMessageMalformedErrorsRecoverUnique(t *testing.T) {
	h := fusekernel.InHeader{Opcode: 0, Unique: 99}
	h.Len = uint32(unsafe.Sizeof(h))

	var m buffer.InMessage
	err := m.Init(bytes.NewReader(encodeInHeader(h)))
	merr, ok := err.(*buffer.MalformedMessageError)
	if !ok {
		t.Fatalf("Init error = %T, want *buffer.MalformedMessageError", err)
	}
	if merr.Unique != 99 {
		t.Fatalf("Unique = %d, want 99", merr.Unique)
	}
}

func TestInMessageShortHeaderHasNoRecoverableUnique(t *testing.T) {
	var m buffer.InMessage
	buf := bytes.NewReader([]byte{1, 2, 3})
	if err := m.Init(buf); err != buffer.ErrShortMessage {
		t.Fatalf("Init error = %v, want ErrShortMessage", err)
	}
}

func TestOutMessageFinalizeSetsLenErrorUnique(t *testing.T) {
	var m buffer.OutMessage
	m.Reset()
	m.AppendString("hello")
	m.Finalize(77, 0)

	if got, want := m.OutHeader().Len, uint32(buffer.OutMessageHeaderSize+5); got != want {
		t.Fatalf("Len = %d, want %d", got, want)
	}
	if m.OutHeader().Unique != 77 {
		t.Fatalf("Unique = %d", m.OutHeader().Unique)
	}
	if m.OutHeader().Error != 0 {
		t.Fatalf("Error = %d", m.OutHeader().Error)
	}
}

func TestOutMessageFinalizeErrorDropsPayload(t *testing.T) {
	var m buffer.OutMessage
	m.Reset()
	m.AppendString("should be dropped")
	m.Finalize(1, -2)

	if got, want := m.OutHeader().Len, uint32(buffer.OutMessageHeaderSize); got != want {
		t.Fatalf("Len = %d, want %d", got, want)
	}
	if len(m.Bytes()) != buffer.OutMessageHeaderSize {
		t.Fatalf("Bytes() length = %d, want %d", len(m.Bytes()), buffer.OutMessageHeaderSize)
	}
}
