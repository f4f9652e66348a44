// cmd/bifa/main.go
package main

import (
	"bifa/internal/app"
	"bifa/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
