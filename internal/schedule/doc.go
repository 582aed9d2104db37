// Package schedule arms recurring time-of-day triggers and a single-shot retry
// trigger on an injectable clock.
//
// Each daily trigger runs its own loop: compute the next instant, wait on a
// timer, fire the action, recompute. Triggers fire independently; callers that
// need mutual exclusion between firings must provide it themselves. Panics in
// actions are recovered and logged so a failing action never stops its
// trigger from re-arming.
package schedule
