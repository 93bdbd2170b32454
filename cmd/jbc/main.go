/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Command jbc is the driver surface described in spec.md §6: it is an
// out-of-scope collaborator the core consumes, rebuilt on
// github.com/spf13/cobra in place of the teacher's bespoke flag
// parser (DESIGN.md) since the driver itself carries none of this
// spec's rigor requirements.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacobin-lang/jbc/globals"
	"github.com/jacobin-lang/jbc/shutdown"
	"github.com/jacobin-lang/jbc/trace"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		shutdown.Exit(shutdown.USAGE_ERROR)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jbc",
		Short:         "jbc compiles Java 8 source to JVM class files",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newParseCmd())
	root.AddCommand(newCompileCmd())
	return root
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "dump the AST of a source file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(args[0], cmd.OutOrStdout())
		},
	}
}

func newCompileCmd() *cobra.Command {
	var outDir string
	var verbose bool
	var noRT bool
	cmd := &cobra.Command{
		Use:   "compile [-o DIR] [-v] [--no-rt] <file>...",
		Short: "compile one or more source files to class files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := globals.InitGlobals("jbc")
			g.OutDir = outDir
			g.Verbose = verbose
			g.NoRuntime = noRT
			g.JavaHome = os.Getenv("JAVA_HOME")
			if verbose {
				trace.SetLevel(trace.FINE)
			}
			ok, err := runCompile(args, g)
			if err != nil {
				return err
			}
			if !ok {
				shutdown.Exit(shutdown.COMPILE_ERROR)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory for class files")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable diagnostic output")
	cmd.Flags().BoolVar(&noRT, "no-rt", false, "omit the bundled runtime classpath")
	return cmd
}
