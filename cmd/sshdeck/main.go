package main

import "github.com/sshdeck/sshdeck/internal/cli"

func main() {
	cli.Execute()
}
