package main

import "github.com/dutchthenomad/rugfeed/internal/process"

func main() {
	process.Run()
}
