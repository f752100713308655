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

// Package config holds the tunable parameters of the in-memory toy
// filesystem: the sizes of its three fixed-capacity tables, the block
// size, and the simulated secondary-storage access latency. Every field
// has the default named in the specification; binaries may override them
// with flags bound through viper, the way the teacher's cfg package binds
// gcsfuse's mount options.
package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Params is the full set of compile-time parameters the reference design
// fixes at build time. Here they are runtime-configurable, but every
// caller that does not override them gets exactly the reference values.
type Params struct {
	// BlockSize is the size in bytes of one data block.
	BlockSize int `mapstructure:"block-size"`

	// InodeTableSize is the fixed capacity of the inode table.
	InodeTableSize int `mapstructure:"inode-table-size"`

	// DataBlocks is the fixed capacity of the data block arena, in blocks.
	DataBlocks int `mapstructure:"data-blocks"`

	// MaxOpenFiles is the fixed capacity of the open file table.
	MaxOpenFiles int `mapstructure:"max-open-files"`

	// MaxFileName is the maximum length, including the terminator, of a
	// directory entry name.
	MaxFileName int `mapstructure:"max-file-name"`

	// DirectBlocks is the number of direct block slots carried by each
	// inode before the indirect block is consulted.
	DirectBlocks int `mapstructure:"direct-blocks"`

	// Delay is the number of opaque busy-loop iterations inserted on every
	// access to a persistent table or block, simulating secondary-storage
	// latency. It is load-bearing for tests that rely on widening race
	// windows; do not set it to zero in concurrency tests.
	Delay int `mapstructure:"delay"`

	// Debug enables verbose logging from the filesystem and allocator.
	Debug bool `mapstructure:"debug"`
}

// Default returns the parameter set named as an example in the
// specification: a 1 KiB block, a 64-entry inode table, 1024 data blocks,
// 20 open files, 40-byte names, 10 direct blocks and a 5000-iteration
// delay loop.
func Default() Params {
	return Params{
		BlockSize:      1024,
		InodeTableSize: 64,
		DataBlocks:     1024,
		MaxOpenFiles:   20,
		MaxFileName:    40,
		DirectBlocks:   10,
		Delay:          5000,
		Debug:          false,
	}
}

// MaxDirEntries is the number of directory records that fit in a single
// block under this parameter set.
func (p Params) MaxDirEntries() int {
	return p.BlockSize / dirEntrySize(p.MaxFileName)
}

// IndirectFanOut is the number of block indices that fit in a single
// indirect block: BlockSize / sizeof(int32).
func (p Params) IndirectFanOut() int {
	return p.BlockSize / 4
}

// MaxFileSize is the largest size, in bytes, an inode's direct and
// indirect addressing can reach.
func (p Params) MaxFileSize() int64 {
	blocks := int64(p.DirectBlocks) + int64(p.IndirectFanOut())
	return blocks * int64(p.BlockSize)
}

func dirEntrySize(maxFileName int) int {
	// name bytes + a 4-byte inumber field, matching the reference
	// dir_entry_t layout (fixed char array + int).
	return maxFileName + 4
}

// BindFlags registers the parameters above on flagSet and binds them into
// v, following the teacher's cfg.BindFlags(flagSet, viper) convention:
// each flag is registered with spf13/pflag and then wired into viper so
// that environment variables, config files and flags all resolve to the
// same key.
func BindFlags(flagSet *pflag.FlagSet, v *viper.Viper) error {
	d := Default()

	flagSet.Int("block-size", d.BlockSize, "Size in bytes of one data block.")
	flagSet.Int("inode-table-size", d.InodeTableSize, "Capacity of the inode table.")
	flagSet.Int("data-blocks", d.DataBlocks, "Capacity of the data block arena.")
	flagSet.Int("max-open-files", d.MaxOpenFiles, "Capacity of the open file table.")
	flagSet.Int("max-file-name", d.MaxFileName, "Maximum directory entry name length.")
	flagSet.Int("direct-blocks", d.DirectBlocks, "Number of direct block slots per inode.")
	flagSet.Int("delay", d.Delay, "Busy-loop iterations simulating storage access latency.")
	flagSet.Bool("debug", d.Debug, "Enable verbose filesystem logging.")

	for _, name := range []string{
		"block-size", "inode-table-size", "data-blocks", "max-open-files",
		"max-file-name", "direct-blocks", "delay", "debug",
	} {
		if err := v.BindPFlag(name, flagSet.Lookup(name)); err != nil {
			return err
		}
	}

	return nil
}

// Load decodes a Params value out of v, falling back to Default() for any
// key that was never set.
func Load(v *viper.Viper) (Params, error) {
	p := Default()
	if err := v.Unmarshal(&p); err != nil {
		return Params{}, err
	}
	return p, nil
}
