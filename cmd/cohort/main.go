package main

import "github.com/felixgeelhaar/cohort/cmd/cohort/cli"

func main() {
	cli.Execute()
}
