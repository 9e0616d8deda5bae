package main

import "github.com/casbridge/casbridge/cmd"

func main() {
	cmd.Execute()
}
