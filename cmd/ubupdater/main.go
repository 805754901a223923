package main

import "github.com/ubports/ubupdater/cmd/ubupdater/cmd"

func main() {
	cmd.Execute()
}
