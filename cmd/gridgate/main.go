// Command gridgate is the authenticating gateway for the household energy
// simulator.
package main

import "github.com/jonwraymond/gridgate/cmd/gridgate/cmd"

func main() {
	cmd.Execute()
}
