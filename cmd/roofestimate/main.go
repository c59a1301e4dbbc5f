package main

import "github.com/JakeFAU/roof-estimate/cmd"

func main() {
	cmd.Execute()
}
