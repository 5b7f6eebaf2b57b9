package main

import (
	"github.com/canonn-science/firmament/cmd/firmament/cmd"
)

func main() {
	cmd.Execute()
}
