package main

import "github.com/terraconstructs/hrconsole/cmd"

func main() {
	cmd.Execute()
}
