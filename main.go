package main

import "github.com/Digital-Shane/metaweave/internal/cmd"

func main() {
	cmd.Execute()
}
