package main

import (
	"github.com/DeadManOfficial/deadman-dash/cmd"
)

func main() {
	cmd.Execute()
}
