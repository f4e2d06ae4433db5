// cmd/capscan-batch/main.go
package main

import "github.com/capella-tools/capscan-batch/internal/cli"

func main() {
	cli.Execute()
}
