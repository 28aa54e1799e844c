package main

import "github.com/example/dine-alert/cmd"

func main() {
	cmd.Execute()
}
