// Package notify surfaces startup failures and degraded capabilities to the
// user through desktop notifications.
package notify

import (
	"fmt"
	"log"

	"github.com/gen2brain/beeep"
)

const title = "CapsGlow"

// Swapped in tests.
var (
	alert  = beeep.Alert
	notify = beeep.Notify
)

// Fatal tells the user the indicator could not start.
func Fatal(err error) {
	msg := fmt.Sprintf("CapsGlow could not start: %v", err)
	log.Println(msg)
	if aerr := alert(title, msg, ""); aerr != nil {
		log.Printf("Failed to show alert: %v", aerr)
	}
}

// Degraded tells the user a capability is unavailable while the indicator
// keeps running.
func Degraded(msg string) {
	log.Println(msg)
	if err := notify(title, msg, ""); err != nil {
		log.Printf("Failed to show notification: %v", err)
	}
}
