// Package report pushes a plan to a remote observer over socket.io. One
// connection is opened per report and closed once the event is emitted.
package report
