package main

import "github.com/goplus/appimagecraft/cmd/appimagecraft/internal"

func main() {
	internal.Execute()
}
