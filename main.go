package main

import "github.com/meshlab/meshcluster/cmd"

func main() {
	cmd.Execute()
}
