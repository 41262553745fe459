package main

import "github.com/sw33tLie/mintwatch/cmd"

func main() {
	cmd.Execute()
}
