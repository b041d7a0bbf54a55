package main

import "github.com/example/cafebook/cmd"

func main() {
	cmd.Execute()
}
