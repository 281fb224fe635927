// Package logging centralizes the logrus field conventions shared across
// this module's packages, mirroring the teacher's
// `var log = logrus.WithField("prefix", ...)` convention used at the top
// of nearly every beacon-chain package.
package logging

import "github.com/sirupsen/logrus"

// New returns a package-scoped logger tagged with prefix, the way the
// teacher tags every subsystem's logger so log lines can be filtered by
// package of origin.
func New(prefix string) *logrus.Entry {
	return logrus.WithField("prefix", prefix)
}
