package main

import "asamanthinks/internal/cli"

func main() {
	cli.Execute()
}
