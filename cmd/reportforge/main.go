// Command reportforge renders penetration-test reports into PDF documents.
//
// Usage:
//
//	reportforge serve  [--config reportforge.yaml] [--seed bundle.json]
//	reportforge render bundle.json --report ID [--variant full|briefing] [--out report.pdf]
//	reportforge version
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], defaultDeps()))
}
