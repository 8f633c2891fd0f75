package main

import "rentdash/apps/api/cmd/adminctl/cmd"

func main() {
	cmd.Execute()
}
