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
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"runtime"
	"syscall"

	"github.com/arfuse/fuse/fuseops"
	"github.com/arfuse/fuse/internal/buffer"
	"github.com/arfuse/fuse/internal/fusekernel"
)

type contextKeyType uint64

var contextKey interface{} = contextKeyType(0)

// maxReadahead asks the kernel for larger read requests than its 4 KiB
// default; see the note in fuse_kernel.h on init_response->max_readahead.
const maxReadahead = 1 << 20

// Connection represents a connection to the fuse kernel process: the single
// device file descriptor through which messages are received and replies
// are sent. ReadOp and Reply must not be called concurrently with
// themselves, but may be called concurrently with each other only in the
// sense that the caller alternates strictly between the two (the cooperative
// single-threaded dispatch this package implements never overlaps them).
type Connection struct {
	cfg         MountConfig
	debugLogger *log.Logger
	errorLogger *log.Logger

	dev      *os.File
	protocol fusekernel.Protocol
}

// opState is stuffed into the context returned by ReadOp so that Reply can
// find its way back to the messages it must finish and recycle.
type opState struct {
	inMsg  *buffer.InMessage
	outMsg *buffer.OutMessage
	op     fuseops.Op
}

// newConnection wraps dev, a file descriptor already connected to the
// kernel. The caller must read and respond to the kernel's INIT request
// (via ReadOp/negotiateProtocol/Reply) before any other op; see session.go.
func newConnection(
	cfg MountConfig,
	debugLogger *log.Logger,
	errorLogger *log.Logger,
	dev *os.File) (*Connection, error) {
	return &Connection{
		cfg:         cfg,
		debugLogger: debugLogger,
		errorLogger: errorLogger,
		dev:         dev,
	}, nil
}

// negotiateProtocol records the FUSE ABI version to speak for the rest of
// the connection's lifetime: the kernel's version, downgraded to this
// package's if the kernel's is newer. Must be called with the InitOp read
// at the start of the session, before replying to it.
func (c *Connection) negotiateProtocol(op *fuseops.InitOp) error {
	min := fusekernel.Protocol{Major: fusekernel.ProtoVersionMinMajor, Minor: fusekernel.ProtoVersionMinMinor}
	if op.Kernel.LT(min) {
		return fmt.Errorf("kernel protocol %v older than minimum %v", op.Kernel, min)
	}

	c.protocol = fusekernel.Protocol{Major: fusekernel.KernelVersion, Minor: fusekernel.KernelMinorVersion}
	if op.Kernel.LT(c.protocol) {
		c.protocol = op.Kernel
	}

	return nil
}

// debugLog writes one line to the debug logger, if any is configured.
func (c *Connection) debugLog(fuseID uint64, calldepth int, format string, v ...interface{}) {
	if c.debugLogger == nil {
		return
	}

	_, file, line, ok := runtime.Caller(calldepth)
	if !ok {
		file = "???"
	}
	fileLine := fmt.Sprintf("%v:%v", path.Base(file), line)
	c.debugLogger.Println(fmt.Sprintf("Op 0x%08x %24s] %v", fuseID, fileLine, fmt.Sprintf(format, v...)))
}

// readMessage reads the next message from the kernel, looping past the
// transient errors that are a normal part of life on /dev/fuse.
func (c *Connection) readMessage() (*buffer.InMessage, error) {
	m := new(buffer.InMessage)

	for {
		err := m.Init(c.dev)

		if pe, ok := err.(*os.PathError); ok {
			switch pe.Err {
			case syscall.ENODEV:
				// The kernel has torn down the mount.
				err = io.EOF
			case syscall.ENOENT, syscall.EINTR, syscall.EAGAIN:
				// Interrupted request; retry the read.
				err = nil
				continue
			}
		}

		// A malformed message (short header, bad declared length, zero
		// opcode) is not a transport failure: return m alongside the error
		// so the caller can recover Header().Unique when available.
		return m, err
	}
}

// writeMessage writes msg to the kernel in a single syscall, as required by
// the "exactly one reply write per request" contract.
func (c *Connection) writeMessage(msg []byte) error {
	n, err := syscall.Write(int(c.dev.Fd()), msg)
	if err != nil {
		return err
	}
	if n != len(msg) {
		return fmt.Errorf("wrote %d bytes; expected %d", n, len(msg))
	}
	return nil
}

// errSkipMessage is a sentinel returned by ReadOp for a malformed message
// that has already been dealt with (answered EIO if its unique id was
// recoverable, logged either way): the caller should read the next
// message rather than treat this as session-ending.
var errSkipMessage = errors.New("fuse: skipped malformed message")

// replyEIO answers unique directly with EIO, bypassing the normal
// op/Reply path: used for messages too malformed to have produced an Op.
// A unique of 0 never requires a reply (reserved for kernel notifications
// and, here, for messages whose header couldn't be decoded at all).
func (c *Connection) replyEIO(unique uint64) {
	if unique == 0 {
		return
	}
	var out buffer.OutMessage
	out.Reset()
	out.Finalize(unique, errnoFromError(EIO))
	if err := c.writeMessage(out.Bytes()); err != nil && c.errorLogger != nil {
		c.errorLogger.Printf("writeMessage (EIO for malformed message): %v", err)
	}
}

// ReadOp consumes the next op from the kernel, returning it along with a
// context that must later be passed to Reply. Returns io.EOF once the
// kernel has closed the connection, or errSkipMessage for a malformed
// message that this method has already answered (or, lacking a known
// unique id, silently dropped) — the caller should simply read again.
//
// This method delivers ops in exactly the order received from the device.
// It must not be called concurrently with itself.
func (c *Connection) ReadOp() (context.Context, fuseops.Op, error) {
	inMsg, err := c.readMessage()
	if err == io.EOF {
		return nil, nil, io.EOF
	}
	if err == buffer.ErrShortMessage {
		if c.errorLogger != nil {
			c.errorLogger.Print(err)
		}
		return nil, nil, errSkipMessage
	}
	if merr, ok := err.(*buffer.MalformedMessageError); ok {
		if c.errorLogger != nil {
			c.errorLogger.Print(merr)
		}
		c.replyEIO(merr.Unique)
		return nil, nil, errSkipMessage
	}
	if err != nil {
		// Any other errno from the read is fatal to the session.
		return nil, nil, err
	}

	op, err := fuseops.Convert(inMsg)
	if err != nil {
		merr := &buffer.MalformedMessageError{Unique: inMsg.Header().Unique, Reason: err.Error()}
		if c.errorLogger != nil {
			c.errorLogger.Print(merr)
		}
		c.replyEIO(merr.Unique)
		return nil, nil, errSkipMessage
	}

	if c.debugLogger != nil {
		c.debugLog(inMsg.Header().Unique, 1, "<- %T", op)
	}

	outMsg := new(buffer.OutMessage)
	outMsg.Reset()

	ctx := context.WithValue(context.Background(), contextKey, opState{inMsg, outMsg, op})
	return ctx, op, nil
}

// shouldLogError reports whether err deserves a line in the error log:
// false for outcomes that are a routine part of the protocol (a failed
// LookUpInode, an unsupported xattr call, an intentionally-unhandled
// opcode).
func (c *Connection) shouldLogError(op fuseops.Op, err error) bool {
	if err == nil || c.errorLogger == nil {
		return false
	}

	switch op.(type) {
	case *fuseops.LookUpInodeOp:
		if err == ENOENT {
			return false
		}
	case *fuseops.GetXattrOp, *fuseops.ListXattrOp:
		if err == ENOSYS || err == ENOATTR || err == ERANGE {
			return false
		}
	case *fuseops.UnknownOp:
		if err == ENOSYS {
			return false
		}
	}

	return true
}

// Reply replies to the op read by the ReadOp call that produced ctx, with
// opErr (nil for success).
func (c *Connection) Reply(ctx context.Context, opErr error) error {
	state, ok := ctx.Value(contextKey).(opState)
	if !ok {
		panic(fmt.Sprintf("Reply called with invalid context: %#v", ctx))
	}

	op := state.op
	inMsg := state.inMsg
	outMsg := state.outMsg
	fuseID := inMsg.Header().Unique

	logError := c.shouldLogError(op, opErr)

	if c.debugLogger != nil {
		if opErr == nil {
			c.debugLog(fuseID, 1, "-> %T", op)
		} else if !logError {
			c.debugLog(fuseID, 1, "-> Error: %q", opErr.Error())
		}
	}

	if logError {
		c.errorLogger.Printf("Op 0x%08x %T] -> Error: %q", fuseID, op, opErr)
	}

	noResponse, errno := c.kernelResponse(outMsg, op, opErr)
	if noResponse {
		return nil
	}

	outMsg.Finalize(fuseID, errno)
	if err := c.writeMessage(outMsg.Bytes()); err != nil {
		msg := fmt.Sprintf("writeMessage: %v", err)
		if c.errorLogger != nil {
			c.errorLogger.Print(msg)
		}
		return fmt.Errorf(msg)
	}

	return nil
}

// close closes the device. Must not be called until every op read from the
// connection has been replied to.
func (c *Connection) close() error {
	return c.dev.Close()
}
