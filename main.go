package main

import (
	"os"

	"github.com/findsync/findsync/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
