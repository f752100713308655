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

// Command tfsctl drives a standalone TFS instance from the command
// line, for the external-copy contract named in spec.md sections 4.7
// and 6.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tfsfuse/tfs/config"
	"github.com/tfsfuse/tfs/fs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tfsctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tfsctl",
		Short: "Drive a standalone in-memory TFS instance.",
	}
	root.AddCommand(newCopyCmd())
	return root
}

// newCopyCmd implements `tfsctl cp <src> <host-path>`: it creates a
// fresh TFS instance, writes the --seed host file's content into it at
// <src> when --seed is given, then exercises ExternalCopy to shuttle
// <src> back out to <host-path> -- a round trip useful for
// smoke-testing an install, since tfsctl does not attach to an
// already-mounted tfsd. Without --seed the fresh instance holds no
// files, so the copy fails with fs.ErrNotFound.
func newCopyCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "cp <tfs-path> <host-path>",
		Short: "Copy a file from a seeded TFS instance to the host filesystem.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tfsPath, hostPath := args[0], args[1]

			cfg, err := config.Load(viper.New())
			if err != nil {
				return err
			}

			core, err := fs.NewFileSystem(cfg)
			if err != nil {
				return err
			}
			defer core.Destroy()

			if in != "" {
				if err := seedFromHost(core, tfsPath, in); err != nil {
					return fmt.Errorf("seeding %s from %s: %w", tfsPath, in, err)
				}
			}

			dst, err := os.Create(hostPath)
			if err != nil {
				return err
			}
			defer dst.Close()

			return core.ExternalCopy(tfsPath, dst)
		},
	}

	cmd.Flags().StringVar(&in, "seed", "", "Host file to load into the TFS path before copying it back out.")
	return cmd
}

func seedFromHost(core *fs.FileSystem, tfsPath, hostPath string) error {
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return err
	}

	h, err := core.Open(tfsPath, fs.OCreat)
	if err != nil {
		return err
	}
	defer core.Close(h)

	_, err = core.Write(h, data)
	return err
}
