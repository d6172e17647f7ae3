package main

import "github.com/pesobook/pesobook/cmd"

func main() {
	cmd.Execute()
}
