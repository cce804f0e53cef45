package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"silc/pkg/compiler"
	"silc/pkg/utils"
)

func (a *app) tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens FILE",
		Short: "Print the token stream of a SIL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, src, err := utils.ReadSource(args[0])
			if err != nil {
				return err
			}
			tokens, err := compiler.Lex(src)
			if err != nil {
				a.reporter.Report(args[0], src, err)
				return &reportedError{err}
			}
			for _, tok := range tokens {
				fmt.Fprintf(a.stdout, "%-6s %-12s %-12s %q\n", tok.Pos, tok.Type.Class(), tok.Type, tok.Lexeme)
			}
			return nil
		},
	}
}

func (a *app) astCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ast FILE",
		Short: "Print the syntax tree of a SIL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, src, err := utils.ReadSource(args[0])
			if err != nil {
				return err
			}
			prog, err := compiler.ParseSource(src)
			if err != nil {
				a.reporter.Report(args[0], src, err)
				return &reportedError{err}
			}

			symbols, _ := cmd.Flags().GetBool("symbols")
			if symbols {
				syms, err := compiler.Analyze(prog)
				if err != nil {
					a.reporter.Report(args[0], src, err)
					return &reportedError{err}
				}
				fmt.Fprint(a.stdout, prog)
				fmt.Fprintln(a.stdout)
				fmt.Fprint(a.stdout, syms)
				return nil
			}
			fmt.Fprint(a.stdout, prog)
			return nil
		},
	}
	cmd.Flags().Bool("symbols", false, "analyze the program and print its symbol table")
	return cmd
}
