package main

import "go-groove/cmd"

func main() {
	cmd.Execute()
}
