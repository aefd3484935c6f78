package main

import "github.com/mudita-community/pure-packager/cmd/pure-packager/cmd"

func main() {
	cmd.Execute()
}
