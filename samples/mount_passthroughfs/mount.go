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

// Command mount_passthroughfs mirrors an existing directory into a FUSE
// mount point, backing every inode with a real file descriptor opened
// against the directory being mirrored.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/jacobsa/timeutil"

	"github.com/arfuse/fuse"
	"github.com/arfuse/fuse/samples/passthroughfs"
)

// optionList accumulates every -o flag occurrence, since flag.String only
// keeps the last one. Each occurrence is parsed as its own comma-separated
// option list.
type optionList []string

func (o *optionList) String() string {
	return ""
}

func (o *optionList) Set(value string) error {
	*o = append(*o, value)
	return nil
}

var fOptions optionList
var fDebug = flag.Bool("debug", false, "Enable debug logging.")

func init() {
	flag.Var(&fOptions, "o", "Mount option (ro, allow_other, fsname=<name>); may be repeated.")
}

func main() {
	flag.Parse()

	if flag.NArg() != 2 {
		log.Fatalf("Usage: %s [-o option]... <source directory> <mount point>", os.Args[0])
	}
	source := flag.Arg(0)
	mountPoint := flag.Arg(1)

	cfg := &fuse.MountConfig{
		ErrorLogger: log.New(os.Stderr, "fuse: ", 0),
	}
	for _, entry := range fOptions {
		if err := fuse.ParseOptions(entry, cfg); err != nil {
			log.Fatalf("invalid -o value: %v", err)
		}
	}
	if *fDebug {
		cfg.DebugLogger = log.New(os.Stderr, "fuse: ", 0)
	}

	fs, err := passthroughfs.New(source, timeutil.RealClock())
	if err != nil {
		log.Fatalf("passthroughfs.New: %v", err)
	}

	mfs, err := fuse.Mount(mountPoint, fs, cfg)
	if err != nil {
		log.Fatalf("Mount: %v", err)
	}

	if err := mfs.Join(context.Background()); err != nil {
		log.Fatalf("Join: %v", err)
	}
}
