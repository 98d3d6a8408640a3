// Task runner for maintaining the spend-pi project.
// Run 'tasks --help' for the list of tasks.
package main

import (
	"github.com/go-while/go-spendpi/internal/cli"
)

var appVersion = "-unset-"

func main() {
	cli.Version = appVersion
	cli.Execute()
}
