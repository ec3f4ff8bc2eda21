package main

import "github.com/cppla/threadbbs/cmd"

func main() {
	cmd.Execute()
}
