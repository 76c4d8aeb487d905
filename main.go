package main

import "github.com/agentic-research/faultcat/cmd"

func main() {
	cmd.Execute()
}
