package main

import (
	"github.com/chaz8081/vknob/internal/link"
	"github.com/chaz8081/vknob/internal/link/tinygoble"
)

func hardwareRadio() (link.Radio, bool) {
	return tinygoble.NewRadio(), true
}
