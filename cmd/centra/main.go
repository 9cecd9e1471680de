package main

import (
	"os"

	"github.com/frankli0324/go-centra/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
