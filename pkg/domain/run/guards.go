package run

import (
	"github.com/cardops/shiplane/pkg/domain"
)

// Always lets the stage run for every branch class.
func Always(domain.RunContext) bool {
	return true
}

// ReleaseOnly limits a stage to runs on release branches.
func ReleaseOnly(rc domain.RunContext) bool {
	return rc.Class == domain.Release
}

// GatePassed limits a stage to runs whose quality gate passed. Until
// the gate ran, it is false.
func GatePassed(rc domain.RunContext) bool {
	return rc.GatePassed()
}

// AllOf combines guards; every one of them must let the stage run.
func AllOf(guards ...Guard) Guard {
	return func(rc domain.RunContext) bool {
		for _, g := range guards {
			if !g(rc) {
				return false
			}
		}
		return true
	}
}
