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
	"io"

	"github.com/arfuse/fuse/fuseops"
	"github.com/arfuse/fuse/fuseutil"
)

// FileSystem is the interface a file system mounted through this package
// must implement. See fuseutil.FileSystem for the full method contract.
type FileSystem = fuseutil.FileSystem

// serve reads and dispatches ops from c until the kernel closes the
// connection, enforcing the ordering every FUSE session must follow:
//
//  1. The first op must be INIT; any other op read before INIT succeeds is
//     answered with EIO without being passed to fs.
//  2. DESTROY invokes fs.Destroy, replies, and marks the session destroyed.
//  3. Once destroyed, every further op is answered EIO without being passed
//     to fs.
//  4. INTERRUPT is always answered ENOSYS; this package does not attempt to
//     cancel an in-flight op, since at most one op is ever in flight.
//  5. Anything else is dispatched to the matching fs method.
func serve(c *Connection, fs FileSystem) error {
	initialized := false
	destroyed := false

	for {
		ctx, op, err := c.ReadOp()
		if err == io.EOF {
			return nil
		}
		if err == errSkipMessage {
			// A malformed message: already answered EIO (if its unique id
			// was recoverable) or silently dropped. Keep serving.
			continue
		}
		if err != nil {
			return err
		}

		if initOp, ok := op.(*fuseops.InitOp); ok {
			if err := c.negotiateProtocol(initOp); err != nil {
				// Incompatible version: reply EPROTO and keep serving. The
				// kernel downgrades its own version and resends INIT; until
				// then every other op is answered EIO below.
				c.Reply(ctx, EPROTO)
				continue
			}
			initErr := fs.Init(ctx, initOp)
			initialized = initErr == nil
			c.Reply(ctx, initErr)
			continue
		}

		if !initialized {
			c.Reply(ctx, EIO)
			continue
		}

		if _, ok := op.(*fuseops.DestroyOp); ok {
			fs.Destroy()
			destroyed = true
			c.Reply(ctx, nil)
			continue
		}

		if destroyed {
			c.Reply(ctx, EIO)
			continue
		}

		switch op.(type) {
		case *fuseops.InterruptOp:
			c.Reply(ctx, ENOSYS)

		case *fuseops.UnknownOp:
			c.Reply(ctx, ENOSYS)

		default:
			c.Reply(ctx, dispatch(ctx, fs, op))
		}
	}
}

// dispatch calls the FileSystem method matching op's concrete type.
func dispatch(ctx context.Context, fs FileSystem, op fuseops.Op) error {
	switch o := op.(type) {
	case *fuseops.LookUpInodeOp:
		return fs.LookUpInode(ctx, o)
	case *fuseops.GetInodeAttributesOp:
		return fs.GetInodeAttributes(ctx, o)
	case *fuseops.SetInodeAttributesOp:
		return fs.SetInodeAttributes(ctx, o)
	case *fuseops.ForgetInodeOp:
		return fs.ForgetInode(ctx, o)
	case *fuseops.BatchForgetOp:
		return fs.BatchForget(ctx, o)

	case *fuseops.MkDirOp:
		return fs.MkDir(ctx, o)
	case *fuseops.MkNodOp:
		return fs.MkNod(ctx, o)
	case *fuseops.CreateFileOp:
		return fs.CreateFile(ctx, o)
	case *fuseops.RmDirOp:
		return fs.RmDir(ctx, o)
	case *fuseops.UnlinkOp:
		return fs.Unlink(ctx, o)
	case *fuseops.RenameOp:
		return fs.Rename(ctx, o)
	case *fuseops.LinkOp:
		return fs.Link(ctx, o)

	case *fuseops.OpenDirOp:
		return fs.OpenDir(ctx, o)
	case *fuseops.ReadDirOp:
		return fs.ReadDir(ctx, o)
	case *fuseops.ReleaseDirHandleOp:
		return fs.ReleaseDirHandle(ctx, o)

	case *fuseops.OpenFileOp:
		return fs.OpenFile(ctx, o)
	case *fuseops.ReadFileOp:
		return fs.ReadFile(ctx, o)
	case *fuseops.WriteFileOp:
		return fs.WriteFile(ctx, o)
	case *fuseops.SyncFileOp:
		return fs.SyncFile(ctx, o)
	case *fuseops.FlushFileOp:
		return fs.FlushFile(ctx, o)
	case *fuseops.ReleaseFileHandleOp:
		return fs.ReleaseFileHandle(ctx, o)
	case *fuseops.FallocateOp:
		return fs.Fallocate(ctx, o)

	case *fuseops.StatFSOp:
		return fs.StatFS(ctx, o)

	case *fuseops.GetXattrOp:
		return fs.GetXattr(ctx, o)
	case *fuseops.ListXattrOp:
		return fs.ListXattr(ctx, o)
	case *fuseops.SetXattrOp:
		return fs.SetXattr(ctx, o)
	case *fuseops.RemoveXattrOp:
		return fs.RemoveXattr(ctx, o)

	case *fuseops.AccessOp:
		return fs.Access(ctx, o)
	case *fuseops.ReadSymlinkOp:
		return fs.ReadSymlink(ctx, o)

	default:
		return ENOSYS
	}
}
