package main

import "photolog-backend/cmd"

func main() {
	cmd.Run()
}
