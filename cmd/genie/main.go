// Command genie manages spreadsheet-style task workspaces synced to a shared
// store.
package main

import "github.com/moesafa-mgf/genie-haus/internal/cli"

func main() {
	cli.Execute()
}
