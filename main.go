package main

import "github.com/campuskit/facemark/cmd"

func main() {
	cmd.Execute()
}
