// The main package for the roofestimate executable.
package main

import (
	"github.com/JakeFAU/roof-estimate/cmd"
)

func main() {
	cmd.Execute()
}
