package main

import "github.com/golangdaddy/roadchain/cmd"

func main() {
	cmd.Execute()
}
