// Command computorctl is the operator CLI onto CPSTO's Durable Workflow
// Engine Adapter (spec.md §6): submit deployments, query status, and
// trigger catalog synchronization.
package main

import "github.com/computor-org/cpsto/cmd/computorctl/commands"

func main() {
	commands.Execute()
}
