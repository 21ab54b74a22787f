package main

import "chemviz/cmd"

func main() {
	cmd.Execute()
}
