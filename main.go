package main

import "github.com/khanhnv2901/sus-cli/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
