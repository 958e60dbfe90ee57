package main

import (
	"github.com/kestrel-labs/mnemo-cli/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
