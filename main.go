package main

import "github.com/kresha325/FootballPro-sub001/cmd"

func main() {
	cmd.Execute()
}
