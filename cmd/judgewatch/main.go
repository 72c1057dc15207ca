package main

import "github.com/vietddude/judgewatch/internal/cli"

func main() {
	cli.Execute()
}
