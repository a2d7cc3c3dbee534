// Package task runs background work for the to-do service.
// The OverdueSweeper periodically moves open items whose due time has
// passed into the OVERDUE state, inside a single store transaction per run.
package task
