package main

import "github.com/oshokin/factorio-modupdate/cmd/factorio-modupdate/cmd"

func main() {
	cmd.Execute()
}
