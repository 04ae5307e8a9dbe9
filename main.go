package main

import "github.com/theirongolddev/curstat/cmd"

func main() {
	cmd.Execute()
}
