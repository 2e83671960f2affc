// Copyright 2015 Google Inc. All Rights Reserved.

package fuse

import "syscall"

// Errno is the error type returned by FileSystem methods: a raw kernel
// errno value, written directly into the reply's OutHeader.Error field.
// A FileSystem may return any syscall.Errno, or any error at all (in which
// case the session logs it and falls back to EIO).
type Errno = syscall.Errno

// Errors corresponding to kernel error numbers most commonly returned by
// FileSystem methods in this package.
const (
	EACCES    = syscall.EACCES
	EEXIST    = syscall.EEXIST
	EINVAL    = syscall.EINVAL
	EIO       = syscall.EIO
	ENOATTR   = syscall.ENODATA
	ENOENT    = syscall.ENOENT
	ENOSYS    = syscall.ENOSYS
	ENOTDIR   = syscall.ENOTDIR
	ENOTEMPTY = syscall.ENOTEMPTY
	EPERM     = syscall.EPERM
	EPROTO    = syscall.EPROTO
	ERANGE    = syscall.ERANGE
)

// errnoFromError converts an arbitrary error returned by a FileSystem
// method into the int32 the kernel expects, falling back to EIO for
// anything that isn't already a recognizable errno. It does not log;
// Connection.Reply logs failed ops before calling it.
func errnoFromError(err error) int32 {
	if err == nil {
		return 0
	}
	if errno, ok := err.(syscall.Errno); ok {
		return -int32(errno)
	}
	return -int32(syscall.EIO)
}
