package main

import "github.com/AvaProtocol/mizan-relayer/cmd"

func main() {
	cmd.Execute()
}
