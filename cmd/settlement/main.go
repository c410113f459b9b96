package main

import (
	"github.com/paywow/settlement/internal/cli"
)

func main() {
	cli.Execute()
}
