package main

import "agpatch/internal/agpatch"

func main() {
	agpatch.Main()
}
