package main

import (
	"invoice-reconciliation-service/cmd/reconciler/cmd"
)

func main() {
	cmd.Execute()
}
