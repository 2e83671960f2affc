// Copyright 2015 Google Inc. All Rights Reserved.

package fuse

import (
	"testing"
	"time"
	"unsafe"

	"github.com/arfuse/fuse/fuseops"
	"github.com/arfuse/fuse/internal/buffer"
	"github.com/arfuse/fuse/internal/fusekernel"
)

// TestKernelResponseGetattrSizeMatchesWireABI guards against kernelResponse
// emitting more bytes than the kernel's copy_out_args will accept: an
// AttrOut reply must be sizeof(OutHeader)+AttrOutSize(proto), never
// unsafe.Sizeof(fusekernel.AttrOut{}) (which always budgets room for the
// Darwin-only xtimes fields).
func TestKernelResponseGetattrSizeMatchesWireABI(t *testing.T) {
	c := &Connection{protocol: fusekernel.Protocol{Major: 7, Minor: 19}}

	op := &fuseops.GetInodeAttributesOp{
		Attributes:           fuseops.InodeAttributes{Nlink: 1},
		AttributesExpiration: time.Now().Add(time.Minute),
	}

	var outMsg buffer.OutMessage
	outMsg.Reset()

	noResponse, errno := c.kernelResponse(&outMsg, op, nil)
	if noResponse || errno != 0 {
		t.Fatalf("kernelResponse = (%v, %v), want (false, 0)", noResponse, errno)
	}

	want := buffer.OutMessageHeaderSize + int(fusekernel.AttrOutSize(c.protocol))
	if got := outMsg.Len(); got != want {
		t.Fatalf("outMsg.Len() = %d, want %d (sizeof(OutHeader)+AttrOutSize)", got, want)
	}
}

// TestKernelResponseLookupSizeMatchesWireABI is the LOOKUP/EntryOut analogue
// of TestKernelResponseGetattrSizeMatchesWireABI.
func TestKernelResponseLookupSizeMatchesWireABI(t *testing.T) {
	c := &Connection{protocol: fusekernel.Protocol{Major: 7, Minor: 19}}

	op := &fuseops.LookUpInodeOp{
		Entry: fuseops.ChildInodeEntry{
			Child:                fuseops.InodeID(2),
			Attributes:           fuseops.InodeAttributes{Nlink: 1},
			EntryExpiration:      time.Now().Add(time.Minute),
			AttributesExpiration: time.Now().Add(time.Minute),
		},
	}

	var outMsg buffer.OutMessage
	outMsg.Reset()

	noResponse, errno := c.kernelResponse(&outMsg, op, nil)
	if noResponse || errno != 0 {
		t.Fatalf("kernelResponse = (%v, %v), want (false, 0)", noResponse, errno)
	}

	want := buffer.OutMessageHeaderSize + int(fusekernel.EntryOutSize(c.protocol))
	if got := outMsg.Len(); got != want {
		t.Fatalf("outMsg.Len() = %d, want %d (sizeof(OutHeader)+EntryOutSize)", got, want)
	}
}

// TestKernelResponseInitFlagsAreSubsetOfKernel ensures the negotiated INIT
// flags never claim a capability the kernel didn't advertise.
func TestKernelResponseInitFlagsAreSubsetOfKernel(t *testing.T) {
	c := &Connection{protocol: fusekernel.Protocol{Major: 7, Minor: 19}}

	op := &fuseops.InitOp{Flags: 0}

	var outMsg buffer.OutMessage
	outMsg.Reset()

	noResponse, errno := c.kernelResponse(&outMsg, op, nil)
	if noResponse || errno != 0 {
		t.Fatalf("kernelResponse = (%v, %v), want (false, 0)", noResponse, errno)
	}

	b := outMsg.Bytes()[buffer.OutMessageHeaderSize:]
	out := (*fusekernel.InitOut)(unsafe.Pointer(&b[0]))
	if out.Flags != 0 {
		t.Fatalf("InitOut.Flags = %#x, want 0 (kernel advertised no flags)", out.Flags)
	}
}
