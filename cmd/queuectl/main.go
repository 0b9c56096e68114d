// Command queuectl drives the telehealth queue from a terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		os.Exit(1)
	}
}
