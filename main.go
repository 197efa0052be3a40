package main

import "github.com/KaramelBytes/sheetcharts/cmd"

func main() {
	cmd.Execute()
}
