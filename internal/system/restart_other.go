//go:build !linux

package system

import "fmt"

func execSelf() error {
	return fmt.Errorf("exec restart requires linux")
}

func reboot() error {
	return fmt.Errorf("reboot requires linux")
}
