package main

import "localization-helpers/internal/cli"

func main() {
	cli.Execute()
}
