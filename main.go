package main

import "torrent-factory/cmd"

func main() {
	cmd.Execute()
}
