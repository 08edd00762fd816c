package command

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUsage          = errors.New("command: usage error")
	ErrInvalidCommand = errors.New("command: invalid command")
)

// Command is one parsed input line.
type Command struct {
	Verb string
	Args []string
}

// Parse splits line on whitespace and lower-cases the verb. An empty or
// blank line yields an empty Verb.
func Parse(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{
		Verb: strings.ToLower(fields[0]),
		Args: fields[1:],
	}
}

// UsageError reports a malformed or missing argument together with the
// expected syntax.
type UsageError struct {
	Verb   string
	Format string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s (command format: %s)", e.Verb, e.Reason, e.Format)
}

func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

const Usage = `Valid commands are:
run                 - starts running a study
stop                - stops running the study and stops recording data
cycle <uint32_t>    - set the stop condition (cycle number). Max value is 4,294,967,295
list                - display current status
on <uint32_t>       - set PWM on time (microseconds)
off <uint32_t>      - set PWM off time (microseconds)
record <string>     - streams %s of received data to the given file in csv format
program             - put the device into program mode
debug               - put the device into debug mode
quit                - quits this program
help                - show this help menu`
