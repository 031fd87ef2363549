package main

import "github.com/Yates-Labs/storyforge/cmd"

func main() {
	cmd.Execute()
}
