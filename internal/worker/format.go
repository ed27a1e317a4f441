package worker

import (
	"fmt"
	"time"
)

// TimeLayout renders timestamps the way the log files always have,
// e.g. "Mon Jan  2 15:04:05 2006".
const TimeLayout = time.ANSIC

func StartedLine(name string, at time.Time) string {
	return fmt.Sprintf("Thread %s started at %s", name, at.Format(TimeLayout))
}

func StoppedLine(name string, at time.Time) string {
	return fmt.Sprintf("Thread %s stopped at %s", name, at.Format(TimeLayout))
}

func MessageLine(message string, at time.Time) string {
	return fmt.Sprintf("Message: %s at %s", message, at.Format(TimeLayout))
}
