package main

import "github.com/couckoo/couckoo/cmd"

func main() {
	cmd.Execute()
}
