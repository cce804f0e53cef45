package main

import (
	"github.com/spf13/cobra"

	"silc/pkg/cpu"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Compile a SIL file and execute it on the GoCPU emulator",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.bindFlags(cmd, "fold", "max-steps")
		},
		RunE: a.runRun,
	}
	cmd.Flags().Bool("fold", false, "fold constant expressions")
	cmd.Flags().Int("max-steps", defaultMaxSteps, "instruction budget; 0 for unlimited")
	return cmd
}

func (a *app) runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	res, err := a.compileFile(path)
	if err != nil {
		return err
	}

	image, _, err := res.Assemble()
	if err != nil {
		a.reporter.Error("assembler", err)
		return &reportedError{err}
	}

	vm := cpu.NewCPU()
	vm.Output = a.stdout
	if err := vm.Load(image); err != nil {
		a.reporter.Error("load", err)
		return &reportedError{err}
	}

	maxSteps := a.v.GetInt("max-steps")
	err = vm.Run(cmd.Context(), maxSteps)
	a.log.Debug().Uint64("steps", vm.Steps).Int("bytes", len(image)).Msg("executed")
	if err != nil {
		a.reporter.Error("runtime", err)
		return &reportedError{err}
	}
	return nil
}
