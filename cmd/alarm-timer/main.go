package main

import "github.com/oshokin/alarm-timer/cmd/alarm-timer/cmd"

func main() {
	cmd.Execute()
}
