// Package event defines the combat event model consumed by the analysis engine.
//
// An encounter is a finite, already-ordered sequence of Event values. Events are
// plain values: analysis modules copy what they need into their own state and
// never write back to the shared stream.
//
// Subscriptions select events with a Filter, evaluated by the pure function
// Matches. Role predicates (player, pet, enemy, friendly) are not event fields;
// they are derived from participant metadata through a RoleResolver supplied
// by the caller.
//
// The terminal "complete" event is reserved. It never appears in an input
// stream and is synthesised exactly once by the engine after the last event
// (see Terminal).
package event
