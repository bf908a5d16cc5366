package main

import "github.com/tayloree/bhtscan/cmd"

func main() {
	cmd.Execute()
}
