package main

import "github.com/shrinedev/shrine/cmd"

func main() {
	cmd.Execute()
}
