/*
Package session runs stimulation sessions for one or more devices.

An Orchestrator owns the digit entry buffer and the run state machine of a
single device. Hosts send it intents through Handle and receive an immutable
snapshot plus the one-shot events the intent produced. Ramp ticks, countdown
ticks and hardware readiness changes are folded into the same serial queue,
so nothing observes the session halfway through a transition.

A Manager keeps one Orchestrator per device for hosts that drive several of
them, with per-device locks (optionally backed by a distributed locker) that
serialize opening and closing.
*/
package session
