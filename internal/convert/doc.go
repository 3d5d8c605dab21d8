// Package convert is the task orchestrator. It turns a conversion request
// into a registered task, drives progress with either a simulated ticker or a
// supervised external tool invocation, and hands the produced file back as a
// delete-on-close stream.
package convert
