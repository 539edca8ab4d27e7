package main

import "os"

func main() {
	if err := newRootCmd(connectDatabase).Execute(); err != nil {
		os.Exit(1)
	}
}
