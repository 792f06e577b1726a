package main

import (
	"fmt"
	"os"
	"strconv"
)

// Exit codes of the run argument checks.
const (
	codeBadArgs   = 255
	codeBadSteps  = 254
	codeNoInput   = 253
	codeNoOutput  = 252
	codeRunFailed = 1
)

// ArgError is a rejected command line. Code becomes the process exit status.
type ArgError struct {
	Code int
	Msg  string
}

func (e *ArgError) Error() string { return e.Msg }

type runArgs struct {
	steps  int
	input  string
	output string
}

// parseRunArgs checks the positional arguments of run: a numeric positive
// step count, a readable input and a writable output.
func parseRunArgs(args []string) (runArgs, error) {
	if len(args) != 3 {
		return runArgs{}, &ArgError{codeBadArgs, fmt.Sprintf("invalid number of arguments: %d", len(args))}
	}

	steps, err := strconv.Atoi(args[0])
	if err != nil {
		return runArgs{}, &ArgError{codeBadArgs, "time steps must be numeric"}
	}
	if steps <= 0 {
		return runArgs{}, &ArgError{codeBadSteps, "invalid number of time steps"}
	}

	in, err := os.Open(args[1])
	if err != nil {
		return runArgs{}, &ArgError{codeNoInput, fmt.Sprintf("cannot open %s for reading", args[1])}
	}
	in.Close()

	out, err := os.OpenFile(args[2], os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return runArgs{}, &ArgError{codeNoOutput, fmt.Sprintf("cannot open %s for writing", args[2])}
	}
	out.Close()

	return runArgs{steps: steps, input: args[1], output: args[2]}, nil
}
