// Copyright 2024 cc8 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cc8-project/cc8"
)

var (
	flagOutput      string
	flagVerbose     bool
	flagWarnAsError bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cc8 <input.c|->",
		Short:         "Translate a C11 subset directly to GNU AT&T x86-64 assembly text",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCompile,
	}
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output assembly file (default: stdout)")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log each pipeline stage to stderr")
	cmd.Flags().BoolVar(&flagWarnAsError, "warn-as-error", false, "treat warnings as fatal errors")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	opts := cc8.CompilerOptions{
		WarnAsError: flagWarnAsError,
		Verbose:     flagVerbose,
	}
	c := cc8.NewCompiler(opts)
	asm, err := c.Compile(args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if flagOutput != "" {
		f, ferr := os.Create(flagOutput)
		if ferr != nil {
			return ferr
		}
		defer f.Close()
		out = f
	}
	_, err = fmt.Fprint(out, asm)
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cc8:", err)
		os.Exit(1)
	}
}
