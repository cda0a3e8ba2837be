package main

import "github.com/mastercomfig/tc2-launcher/cmd/tc2-launcher/cmd"

func main() {
	cmd.Execute()
}
