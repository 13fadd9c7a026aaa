package main

import (
	"fmt"
	"io"
	"os"

	"cv_backend/core"
)

func main() {
	code, err := execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		code = core.WorseExitCode(code, core.ExitCodeError)
	}
	if core.IsSignalExit(code) {
		fmt.Fprintln(os.Stderr, "Stopped:", core.ExitCodeName(code))
	}
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	a := newApp(stdin, stdout, stderr)
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.Execute()
	if closeErr := a.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return a.exitCode(), err
}
