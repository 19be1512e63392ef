package main

import (
	"github.com/kafbench/kafbench/internal/cli"
)

func main() {
	cli.Execute()
}
