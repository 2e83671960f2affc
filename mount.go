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
	"fmt"
	"log"
	"runtime"
	"strings"
)

// MountConfig holds the options accepted by Mount. The zero value is a
// usable, conservative default.
type MountConfig struct {
	// Present the file system read-only to the kernel.
	ReadOnly bool

	// The name shown for this file system in mount(8)/df(1) output.
	FSName string

	// Freeform mount options passed through to fusermount (Linux) or
	// mount_osxfusefs (Darwin), e.g. {"allow_other": ""}.
	Options map[string]string

	// Ask the kernel to allow overlapping, out-of-order read requests rather
	// than serializing them.
	EnableAsyncReads bool

	// Disable write-back caching, which this package otherwise enables by
	// default.
	DisableWritebackCaching bool

	// Linux >= 3.16: once OpenFile returns ENOSYS, tell the kernel it need
	// not call OpenFile again for this mount.
	EnableNoOpenSupport bool

	// Linux >= 5.1: the OpenDir analog of EnableNoOpenSupport.
	EnableNoOpendirSupport bool

	// Linux: allow the kernel to send lookup and readdir ops in parallel
	// rather than one at a time.
	EnableParallelDirOps bool

	// OS X only: osxfuse normally ignores the entry expiration times this
	// package returns and caches entries indefinitely unless the novncache
	// mount option is set, which this package sets by default. Set this to
	// restore osxfuse's default (and dangerous) unlimited caching.
	EnableVnodeCaching bool

	// Logger for request/response debug tracing. Nil disables it.
	DebugLogger *log.Logger

	// Logger for unexpected FileSystem errors. Nil disables it.
	ErrorLogger *log.Logger
}

func (c *MountConfig) toMap() map[string]string {
	opts := make(map[string]string, len(c.Options)+2)
	for k, v := range c.Options {
		opts[k] = v
	}

	opts["default_permissions"] = ""

	if c.ReadOnly {
		opts["ro"] = ""
	}
	if c.FSName != "" {
		opts["fsname"] = c.FSName
	}

	if runtime.GOOS == "darwin" {
		if !c.EnableVnodeCaching {
			opts["novncache"] = ""
		}
		opts["noappledouble"] = ""
	}

	return opts
}

func (c *MountConfig) getOptions() string {
	opts := c.toMap()
	parts := make([]string, 0, len(opts))
	for k, v := range opts {
		if v == "" {
			parts = append(parts, k)
		} else {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, ",")
}

// MountedFileSystem represents the status of a mount operation, with a
// method to wait for the file system to be unmounted.
type MountedFileSystem struct {
	dir string

	joinStatus          error
	joinStatusAvailable chan struct{}
}

// Dir returns the directory on which the file system is mounted (or where
// mounting was attempted).
func (mfs *MountedFileSystem) Dir() string {
	return mfs.dir
}

// Join blocks until the mounted file system has been unmounted. The
// returned error is non-nil if anything unexpected happened while serving.
// May be called multiple times.
func (mfs *MountedFileSystem) Join(ctx context.Context) error {
	select {
	case <-mfs.joinStatusAvailable:
		return mfs.joinStatus
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Mount attempts to mount a file system on the given directory, using fs to
// answer kernel requests. It blocks until the platform mount step has
// finished: on Linux, until fusermount or mount(2) has returned, which is
// before the kernel's INIT request is answered; on OS X, until the
// mount_osxfusefs helper has exited. All ops, INIT included, are served on a
// background goroutine.
func Mount(dir string, fs FileSystem, config *MountConfig) (*MountedFileSystem, error) {
	if config == nil {
		config = &MountConfig{}
	}

	debugLogger := config.DebugLogger
	if debugLogger == nil {
		debugLogger = getLogger()
	}

	mfs := &MountedFileSystem{
		dir:                 dir,
		joinStatusAvailable: make(chan struct{}),
	}

	ready := make(chan error, 1)
	dev, err := mount(dir, config, ready)
	if err != nil {
		return nil, fmt.Errorf("mount: %v", err)
	}

	connection, err := newConnection(*config, debugLogger, config.ErrorLogger, dev)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("newConnection: %v", err)
	}

	go func() {
		err := serve(connection, fs)
		closeErr := connection.close()
		if err == nil {
			err = closeErr
		}
		mfs.joinStatus = err
		close(mfs.joinStatusAvailable)
	}()

	if err := <-ready; err != nil {
		return mfs, fmt.Errorf("waiting for mount: %v", err)
	}

	return mfs, nil
}

// Unmount attempts to unmount the file system mounted at dir.
func Unmount(dir string) error {
	return unmount(dir)
}
