// Package events provides types and interfaces for an event-driven architecture.
//
// This package defines event types and handler interfaces that allow for loose coupling
// between components in the system. Services can emit events without knowing which
// handlers will process them, enabling better separation of concerns and reducing
// circular dependencies.
//
// The primary components are:
// - LearnerEvent: Something that happened to a learner's progress (grade submitted, unit completed)
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
//
// Downstream consumers such as gamification or the background plan-refresh
// pipeline subscribe as handlers; this package only produces the notifications.
package events
