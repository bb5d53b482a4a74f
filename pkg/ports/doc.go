/*
Package ports defines the driven ports (interfaces) of the session core.

These interfaces decouple the orchestrator from the device hardware and from
session bookkeeping, so the same core runs against a simulated gateway in a
terminal, a real transducer, or a Redis-backed ledger.

# Key Interfaces

  - HardwareGateway: drives the transducer output and reports readiness.
  - SessionLedger: records session start, stop and in-session events.
  - LedgerReader: optional read side of a ledger, used by inspection tools.
  - SnapshotStore: persists the latest UiState of each device.
  - DistributedLocker: coordinates device ownership across replicas.
*/
package ports
