package main

import (
	"tuncat/relay/cmd"
)

func main() {
	cmd.Execute()
}
