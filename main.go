package main

import "github.com/aita/btreedb/cmd"

func main() {
	cmd.Execute()
}
