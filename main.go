package main

import "github.com/sw33tLie/wpaudit/cmd"

func main() {
	cmd.Execute()
}
