// Package integration contains the marketplace and carrier integration
// context: the ports the sync engines talk to and the records they produce.
//
// Key concepts:
//   - Marketplace: port for the third-party platform supplying inventory and orders
//   - CarrierTracker: port for a shipping carrier's tracking API
//   - StatusMapper: static translation of carrier status codes
//   - SyncRun: persisted outcome of one engine run
//   - RunLock: lease guaranteeing at most one concurrent run per job type
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
