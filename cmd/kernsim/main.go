// Command kernsim boots the kernel core inside an emulated PC and reports
// what the kernel printed on the serial port and the text console.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
