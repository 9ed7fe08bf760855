package main

import (
	"os"

	"github.com/SoftDryzz/vaultic/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
