// LogWarden - Folder, Log and Service Monitor
//
// LogWarden checks file drops, error logs and Windows services on a
// schedule and mails a single report of everything that looks wrong.
package main

import (
	"os"

	"github.com/ccollicutt/logwarden/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
