package main

import "github.com/goplus/llar-mongocxx/cmd/llar-mongocxx/internal"

func main() {
	internal.Execute()
}
