package main

import (
	"github.com/cloudquote/cloudquote/cmd/cloudquote/commands"
)

func main() {
	commands.Execute()
}
