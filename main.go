package main

import "bcfeed/cmd"

func main() {
	cmd.Execute()
}
