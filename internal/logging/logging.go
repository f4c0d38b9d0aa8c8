// Package logging centralizes the logrus setup every replica process uses,
// so the CLI and the replica actor log through one configured logger
// instead of ad-hoc log calls. Every line is tagged with the owning
// replica's id via logrus.Entry.WithField, so structured fields travel with
// every line regardless of which package emits it.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger tagged with replica, writing text-formatted
// entries to stderr. Level defaults to Info; set PAXLEDGER_DEBUG=1 to get
// Debug-level message tracing.
func New(replica string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("PAXLEDGER_DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	}
	return log.WithField("replica", replica)
}
