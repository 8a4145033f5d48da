package pkg

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/colorstring"
)

// Output receives the progress messages of the CLI
var Output io.Writer = os.Stdout

func printLine(prefix, msg string) {
	fmt.Fprintf(Output, "%s %s\n", colorstring.Color(prefix), msg)
}

// PrintTask announces a new step
func PrintTask(msg string) {
	printLine("[blue][bold]==>[default]", msg)
}

func PrintSubtask(msg string) {
	printLine("[green][bold]  ->[reset]", msg)
}

func PrintError(msg string) {
	printLine("[red][bold]  !![reset]", msg)
}
