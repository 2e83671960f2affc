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

package fuseops

import "github.com/arfuse/fuse/internal/fusekernel"

// DirentType describes the type of a directory entry, mirroring the DT_*
// constants from <dirent.h> that the kernel expects in a fuse_dirent.
type DirentType uint32

const (
	DT_Unknown   DirentType = fusekernel.DTUnknown
	DT_Socket    DirentType = fusekernel.DTSock
	DT_Link      DirentType = fusekernel.DTLnk
	DT_File      DirentType = fusekernel.DTReg
	DT_Block     DirentType = fusekernel.DTBlk
	DT_Directory DirentType = fusekernel.DTDir
	DT_Char      DirentType = fusekernel.DTChr
	DT_FIFO      DirentType = fusekernel.DTFifo
)

// Dirent describes one entry in a directory listing, as built by
// fuseutil.DirentListBuilder and consumed by fuseops.ReadDirOp.Data.
type Dirent struct {
	// The offset within the directory of the entry following this one. See
	// notes on ReadDirOp.Offset for the semantics.
	Offset DirOffset

	Inode InodeID
	Name  string
	Type  DirentType
}
