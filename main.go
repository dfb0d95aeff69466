package main

import "github.com/itsmostafa/goplay/cmd"

func main() {
	cmd.Execute()
}
