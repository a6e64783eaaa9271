// Package pubsub decouples the bridge process from job-worker processes.
//
// Bus is a minimal publish/subscribe contract: payloads are encoded with
// sonic, delivered at most once to every current subscriber of a channel,
// and handled on a goroutine owned by the subscription, one message at a
// time and in publish order.
//
// RedisBus is the production implementation. MemoryBus serves tests and
// single-process deployments where the bridge and the workers share a
// binary.
package pubsub
