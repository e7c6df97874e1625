package main

import "github.com/xyla-io/raspador/internal/cli"

func main() {
	cli.Execute()
}
