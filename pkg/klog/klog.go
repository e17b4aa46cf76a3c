// Package klog is the kernel-wide structured logger. Every subsystem
// that needs to trace scheduling decisions, lifecycle transitions, or
// deadlock refusals logs through here instead of reaching for fmt or
// the standard log package directly.
package klog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the kernel-wide log verbosity. Valid names are the
// logrus level names ("debug", "info", "warn", "error").
func SetLevel(name string) error {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}

// For returns an entry pre-tagged with a subsystem name, e.g.
// klog.For("sched") or klog.For("proc").
func For(subsystem string) *logrus.Entry {
	return base.WithField("subsys", subsystem)
}

// Task returns an entry tagged with the pid/tid pair a log line is
// about, in addition to its subsystem.
func Task(subsystem string, pid, tid int) *logrus.Entry {
	return base.WithFields(logrus.Fields{
		"subsys": subsystem,
		"pid":    pid,
		"tid":    tid,
	})
}
