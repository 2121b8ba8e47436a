package main

import "github.com/socialhub/socialhub-cli/internal/cmd"

func main() {
	cmd.Execute()
}
