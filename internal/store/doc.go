// Package store defines the persistence contracts the learning core depends
// on: review states, the prerequisite graph, learner completions, and the
// sentinel errors implementations surface. The interfaces keep scheduling and
// planning logic independent of any particular database.
package store
