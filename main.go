package main

import "github.com/drdanz/yarp-unix-socket/cmd"

func main() {
	cmd.Execute()
}
