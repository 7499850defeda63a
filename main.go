// Tessera - desktop workbench with a single shared instance per user.
//
// v2.3.1: Second-instance hand-off now absolutizes relative path arguments.
// v2.3.0: Automated test sessions refuse to attach to a running instance.
// v2.2.0: Stale socket recovery retries the bind exactly once.
package main

import (
	"os"

	"github.com/tessera-apps/tessera/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
