// Package votingservice implements the voting service inside the
// member-governance context.
//
// The module owns the topic catalogue, time-boxed voting sessions, ballot
// admission with one vote per member per session, tally reads, and the
// outbox-backed workers that expire sessions and relay lifecycle events.
// Business rules live in the domain and application layers; persistence,
// HTTP, and messaging concerns stay behind ports and adapters.
package votingservice
