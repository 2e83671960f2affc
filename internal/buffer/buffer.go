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

// Package buffer implements the wire codec: a cursor over a single received
// kernel message (InMessage) and a builder for a single outgoing reply
// (OutMessage), matching the FUSE ABI's fixed-layout, unaligned-friendly
// records.
package buffer

// MinReadBufferSize is FUSE_MIN_READ_BUFFER_SIZE: the smallest receive
// buffer the kernel is guaranteed not to overflow, regardless of negotiated
// max write.
const MinReadBufferSize = 8192

// MaxWriteSize bounds the size of a single WRITE payload advertised to the
// kernel during INIT.
const MaxWriteSize = 1 << 20

// MaxReadSize bounds the size of a single READ reply payload.
const MaxReadSize = MaxWriteSize

// BufferSize is the receive buffer size used for each message: large enough
// to hold MaxWriteSize plus header overhead, never smaller than
// MinReadBufferSize.
const BufferSize = MaxWriteSize + MinReadBufferSize
