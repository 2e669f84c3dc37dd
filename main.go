package main

import "github.com/jayjongcheolpark/chat2md/cmd"

func main() {
	cmd.Execute()
}
