package main

import "encindex/internal/cli"

func main() {
	cli.Execute()
}
