//go:build !linux

package power

func platformWatchers() []Watcher { return nil }
