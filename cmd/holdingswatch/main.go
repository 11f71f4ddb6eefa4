package main

import "github.com/peterbitar/holdingswatch/internal/cli"

func main() {
	cli.Execute()
}
