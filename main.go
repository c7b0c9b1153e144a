// Package main is the entry point for the pktcodec header tool.
package main

import "firestige.xyz/pktcodec/cmd"

func main() {
	cmd.Execute()
}
