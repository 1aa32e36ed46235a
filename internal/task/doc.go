// Package task provides background processing for work that should not
// block request handling, chiefly refreshing learner plans after progress
// events. Tasks are persisted before they are queued, so unfinished work
// survives restarts and is recovered on startup.
package task
