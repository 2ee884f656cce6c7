package main

import (
	"os"

	"github.com/Iron-Ham/pyc/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
