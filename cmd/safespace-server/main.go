package main

import "github.com/safespace/safespace-server/cmd/safespace-server/cmd"

func main() {
	cmd.Execute()
}
