//go:build !windows

package main

import "github.com/pkg/errors"

func runIndicator(options) error {
	return errors.New("capsglow only runs on Windows")
}
