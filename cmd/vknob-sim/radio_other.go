//go:build !linux

package main

import "github.com/chaz8081/vknob/internal/link"

func hardwareRadio() (link.Radio, bool) {
	return nil, false
}
