package main

import "github.com/ubports/ubupdater/cmd/simgtest/cmd"

func main() {
	cmd.Execute()
}
