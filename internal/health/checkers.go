// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"time"
)

// FuncChecker adapts a probe function to Checker. A failing probe reports
// failStatus.
type FuncChecker struct {
	name       string
	probe      func(ctx context.Context) error
	failStatus Status
	timeout    time.Duration
}

// NewFuncChecker reports unhealthy when probe fails.
func NewFuncChecker(name string, probe func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, probe: probe, failStatus: StatusUnhealthy, timeout: 2 * time.Second}
}

// Optional downgrades failures to degraded so they do not fail readiness.
func (c *FuncChecker) Optional() *FuncChecker {
	c.failStatus = StatusDegraded
	return c
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult {
	if c.probe == nil {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.probe(ctx); err != nil {
		return CheckResult{Status: c.failStatus, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// BreakerChecker reports a circuit breaker's state. An open breaker means
// the dependency is failing fast: live sessions degrade but archived history
// still serves, so it never reports unhealthy.
type BreakerChecker struct {
	name  string
	state func() string
}

// NewBreakerChecker creates a checker over a breaker state getter.
func NewBreakerChecker(name string, state func() string) *BreakerChecker {
	return &BreakerChecker{name: name, state: state}
}

func (c *BreakerChecker) Name() string { return c.name }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	switch st := c.state(); st {
	case "closed":
		return CheckResult{Status: StatusHealthy, Message: "breaker closed"}
	default:
		return CheckResult{Status: StatusDegraded, Message: "breaker " + st}
	}
}
