package main

import "github.com/unifypy/unifypy/cmd/unifypy-prepare/cmd"

func main() {
	cmd.Execute()
}
