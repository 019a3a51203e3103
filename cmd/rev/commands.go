package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thomasrohde/rev/pkg/config"
	"github.com/thomasrohde/rev/pkg/diagnostics"
	"github.com/thomasrohde/rev/pkg/formatter"
	"github.com/thomasrohde/rev/pkg/help"
	"github.com/thomasrohde/rev/pkg/runtime"
)

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file|->",
		Short: "Run a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(cmd, opts, args[0])
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file|->",
		Short: "Parse and validate a program without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", err)
				return &exitError{code: exitUsage}
			}
			source, filename, err := readSource(cmd, args[0])
			if err != nil {
				printDiags(cmd.ErrOrStderr(), []diagnostics.Diagnostic{ioDiag(err)}, cfg.Pretty)
				return &exitError{code: exitUsage}
			}

			diags := runtime.New().Check(source, filename)
			if len(diags) > 0 {
				printDiags(cmd.ErrOrStderr(), diags, cfg.Pretty)
				return &exitError{code: exitStatic}
			}
			if cfg.Pretty {
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("No errors found."))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "[]")
			}
			return nil
		},
	}
}

func newFmtCmd(opts *options) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt <file|->",
		Short: "Print a program in canonical layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, filename, err := readSource(cmd, args[0])
			if err != nil {
				printDiags(cmd.ErrOrStderr(), []diagnostics.Diagnostic{ioDiag(err)}, opts.pretty)
				return &exitError{code: exitUsage}
			}
			formatted, err := runtime.New().Format(source, filename)
			if err != nil {
				return reportError(cmd.ErrOrStderr(), err, opts.pretty)
			}

			if formatter.HasComments(source) {
				fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("warning: comments are not preserved by the formatter"))
			}
			if write && args[0] != "-" {
				if err := os.WriteFile(args[0], []byte(formatted), 0o644); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error writing file: %s\n", err)
					return &exitError{code: exitUsage}
				}
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatted)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the file in place")
	return cmd
}

func newInvertCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "invert <file|->",
		Short: "Print a program with every function body inverted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, filename, err := readSource(cmd, args[0])
			if err != nil {
				printDiags(cmd.ErrOrStderr(), []diagnostics.Diagnostic{ioDiag(err)}, opts.pretty)
				return &exitError{code: exitUsage}
			}
			inverted, err := runtime.New().Invert(source, filename)
			if err != nil {
				return reportError(cmd.ErrOrStderr(), err, opts.pretty)
			}
			fmt.Fprint(cmd.OutOrStdout(), inverted)
			return nil
		},
	}
}

func newDocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doc [topic]",
		Short: "Show the language reference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprint(out, help.QUICKREF)
				return nil
			}
			name, content, err := help.MatchTopic(args[0])
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", err)
				return &exitError{code: exitUsage}
			}
			fmt.Fprint(out, content)
			switch name {
			case "builtins":
				fmt.Fprint(out, "\n"+help.BuiltinIndex())
			case "diagnostics":
				fmt.Fprint(out, "\n"+help.CodeIndex())
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, source, err := config.Load(cwd)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", err)
				return &exitError{code: exitUsage}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n%s", source, strings.TrimLeft(cfg.String(), "\n"))
			return nil
		},
	}
}
