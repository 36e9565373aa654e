package main

import "github.com/charliek/eventlook/internal/cli"

func main() {
	cli.Execute()
}
