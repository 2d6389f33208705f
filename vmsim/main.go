// Command vmsim translates logical addresses through a simulated TLB, page
// table, and physical memory backed by a page store.
package main

import "github.com/sarchlab/vmsim/vmsim/cmd"

func main() {
	cmd.Execute()
}
