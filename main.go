package main

import "github.com/KaramelBytes/corrmatrix/cmd"

func main() {
	cmd.Execute()
}
