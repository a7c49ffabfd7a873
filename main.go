package main

import "github.com/notargets/gobilinear/cmd"

func main() {
	cmd.Execute()
}
