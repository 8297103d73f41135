package main

import (
	"github.com/perimetrix/fieldclinic/api"
)

func main() {
	api.MainLoop()
}
