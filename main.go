package main

import "github.com/chrisdamba/foodeta/cmd"

func main() {
	cmd.Execute()
}
