package main

import "github.com/godbrigero/napoleon/cmd"

func main() {
	cmd.Execute()
}
