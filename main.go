package main

import (
	"github.com/alchemix-finance/alchemist-indexer/cmd"
)

func main() {
	cmd.Execute()
}
