package main

import "readmefooter/internal/cmd"

func main() {
	cmd.Execute()
}
