// Command gobfdctl inspects a running gobfd daemon via its diagnostics
// dump file and consumer event socket.
package main

import "github.com/clayne/keepalived/cmd/gobfdctl/commands"

func main() {
	commands.Execute()
}
