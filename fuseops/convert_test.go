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

package fuseops_test

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/kylelemons/godebug/pretty"

	"github.com/arfuse/fuse/fuseops"
	"github.com/arfuse/fuse/internal/buffer"
	"github.com/arfuse/fuse/internal/fusekernel"
)

func appendRecord(buf *bytes.Buffer, v interface{}) {
	switch r := v.(type) {
	case fusekernel.InHeader:
		const size = int(unsafe.Sizeof(fusekernel.InHeader{}))
		buf.Write((*[size]byte)(unsafe.Pointer(&r))[:])
	case fusekernel.MkdirIn:
		const size = int(unsafe.Sizeof(fusekernel.MkdirIn{}))
		buf.Write((*[size]byte)(unsafe.Pointer(&r))[:])
	case fusekernel.ReadIn:
		const size = int(unsafe.Sizeof(fusekernel.ReadIn{}))
		buf.Write((*[size]byte)(unsafe.Pointer(&r))[:])
	case fusekernel.WriteIn:
		const size = int(unsafe.Sizeof(fusekernel.WriteIn{}))
		buf.Write((*[size]byte)(unsafe.Pointer(&r))[:])
	default:
		panic("unsupported record type in test helper")
	}
}

func buildMessage(t *testing.T, opcode fusekernel.Opcode, nodeid uint64, body func(*bytes.Buffer)) *buffer.InMessage {
	t.Helper()

	var payload bytes.Buffer
	body(&payload)

	h := fusekernel.InHeader{
		Opcode: opcode,
		Unique: 7,
		Nodeid: nodeid,
		Uid:    111,
		Gid:    222,
		Pid:    333,
	}
	h.Len = uint32(int(unsafe.Sizeof(h)) + payload.Len())

	var full bytes.Buffer
	appendRecord(&full, h)
	full.Write(payload.Bytes())

	var m buffer.InMessage
	if err := m.Init(bytes.NewReader(full.Bytes())); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return &m
}

func TestConvertLookUpInode(t *testing.T) {
	m := buildMessage(t, fusekernel.OpLookup, 17, func(b *bytes.Buffer) {
		b.WriteString("childname\x00")
	})

	op, err := fuseops.Convert(m)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	lo, ok := op.(*fuseops.LookUpInodeOp)
	if !ok {
		t.Fatalf("got %T, want *LookUpInodeOp", op)
	}
	if lo.Parent != 17 || lo.Name != "childname" {
		t.Fatalf("got %+v", lo)
	}
	wantHeader := fuseops.OpHeader{Uid: 111, Gid: 222, Pid: 333}
	if diff := pretty.Compare(lo.Header, wantHeader); diff != "" {
		t.Fatalf("header not plumbed through (-got +want):\n%s", diff)
	}
}

func TestConvertMkDir(t *testing.T) {
	m := buildMessage(t, fusekernel.OpMkdir, 1, func(b *bytes.Buffer) {
		appendRecord(b, fusekernel.MkdirIn{Mode: 0755})
		b.WriteString("newdir\x00")
	})

	op, err := fuseops.Convert(m)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	mo, ok := op.(*fuseops.MkDirOp)
	if !ok {
		t.Fatalf("got %T, want *MkDirOp", op)
	}
	if mo.Name != "newdir" || mo.Mode.Perm() != 0755 {
		t.Fatalf("got %+v", mo)
	}
}

func TestConvertWriteCarriesData(t *testing.T) {
	payload := []byte("hello, world")
	m := buildMessage(t, fusekernel.OpWrite, 5, func(b *bytes.Buffer) {
		appendRecord(b, fusekernel.WriteIn{Fh: 9, Offset: 100, Size: uint32(len(payload))})
		b.Write(payload)
	})

	op, err := fuseops.Convert(m)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	wo, ok := op.(*fuseops.WriteFileOp)
	if !ok {
		t.Fatalf("got %T, want *WriteFileOp", op)
	}
	if wo.Offset != 100 || wo.Handle != 9 || !bytes.Equal(wo.Data, payload) {
		t.Fatalf("got %+v", wo)
	}
}

func TestConvertUnknownOpcode(t *testing.T) {
	m := buildMessage(t, fusekernel.OpIoctl, 1, func(b *bytes.Buffer) {})

	op, err := fuseops.Convert(m)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if _, ok := op.(*fuseops.UnknownOp); !ok {
		t.Fatalf("got %T, want *UnknownOp", op)
	}
}

func TestConvertTruncatedBodyIsError(t *testing.T) {
	m := buildMessage(t, fusekernel.OpMkdir, 1, func(b *bytes.Buffer) {
		b.Write([]byte{1, 2, 3})
	})

	if _, err := fuseops.Convert(m); err == nil {
		t.Fatalf("expected error for truncated MkdirIn body")
	}
}
