package main

import "github.com/dchud/marcstream/cmd/marc/cmd"

func main() {
	cmd.Execute()
}
