// =============================================================================
// FILE: cmd/ethconsole/main.go
// ROLE: Console Entry Point — Attach, Greet, Evaluate
// =============================================================================
//
// Usage examples:
//   ethconsole ws://localhost:8546          ← WebSocket endpoint
//   ethconsole /tmp/geth.ipc                ← Local socket
//   ethconsole mainnet                      ← Alias from ethconsole.yaml
//   ethconsole mainnet --exec 'eth.chainId()'
//   ethconsole http://localhost:8545 --clients lite
//
// EXECUTION FLOW
// ==============
//
//   1. main()
//      │
//      ├─ config.LoadEnv()            ← Load .env file
//      └─ rootCmd.Execute()
//           │
//           ├─ config.Load(--config)   ← Read ethconsole.yaml (optional)
//           ├─ cfg.Resolve(endpoint)   ← Alias or literal URL + headers
//           ├─ console.Attach()        ← Classify URL, dial every library
//           ├─ session.Welcome()       ← Banner (skipped with --exec)
//           ├─ session.Install()       ← Expose eth, web3, rpc, util, ...
//           ├─ console.Preload()       ← --preload scripts
//           └─ host.Run() / Exec()     ← Interactive loop or one expression
//
// Any failure before the prompt appears is printed once as "Error: ..." and
// the process exits with status 1. Once the prompt is up, errors raised by
// expressions are printed and the loop continues.
//
// Flags can also be set through ETHCONSOLE_<FLAG> environment variables,
// e.g. ETHCONSOLE_CALL_TIMEOUT=5s.
// =============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/dmagro/eth-console/internal/config"
)

func main() {
	config.LoadEnv()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
