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

// Command tfsd mounts an in-memory TFS store at a given mountpoint
// using github.com/jacobsa/fuse, the way the teacher's own root binary
// mounts gcsfuse.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tfsfuse/tfs/config"
	"github.com/tfsfuse/tfs/fs"
	"github.com/tfsfuse/tfs/fuseadapter"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tfsd:", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("tfsd", pflag.ExitOnError)
	v := viper.New()
	if err := config.BindFlags(flagSet, v); err != nil {
		return err
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: tfsd [flags] <mountpoint>")
	}
	mountpoint := flagSet.Arg(0)

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	core, err := fs.NewFileSystem(cfg)
	if err != nil {
		return fmt.Errorf("initializing filesystem: %w", err)
	}
	defer core.Destroy()

	server := fuseadapter.New(core)

	mfs, err := fuse.Mount(mountpoint, fuseutil.NewFileSystemServer(server), &fuse.MountConfig{
		FSName:      "tfs",
		ReadOnly:    false,
		DebugLogger: nil,
	})
	if err != nil {
		return fmt.Errorf("mounting at %s: %w", mountpoint, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = fuse.Unmount(mountpoint)
	}()

	return mfs.Join(context.Background())
}
