/*
Package cli provides command-line helpers shared by the cascade commands.

Output Formatting:

Build and check summaries can be printed as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Progress Reporting:

The build command reports progress while compiling many entry files:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(int64(len(files)))
	...
	progress.Update(done)
	progress.Finish()

Exit Codes:

ExitCode maps a command error onto the process exit status: 1 for compile
failures, 2 for configuration and usage problems, 3 when check finds output
that differs from the expected CSS, and 130 when interrupted.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
