package main

import (
	"github.com/perimetrix/fieldclinic/cmd/fieldctl/command"
)

func main() {
	command.Execute()
}
