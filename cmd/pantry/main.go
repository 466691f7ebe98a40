// Command pantry is the command-line interface for managing named
// database connections.
package main

import "github.com/pantrydb/pantry/internal/cli"

func main() {
	cli.Execute()
}
