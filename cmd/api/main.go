package main

import "github.com/spec-kit/user-service/internal/cli"

func main() {
	cli.Execute()
}
