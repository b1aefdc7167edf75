package main

import "splitkasse/internal/commands"

func main() {
	commands.Execute()
}
