/*
Package ports defines the driven ports (interfaces) of the warp engine.

These interfaces decouple pipelines from the infrastructure that surrounds them,
so transactions, locks and snapshot storage can be swapped per deployment.

# Key Interfaces

  - TransactionBoundary: executes a unit of work with commit/rollback semantics.
  - DistributedLocker: provides distributed locking, used to serialize executions across replicas.
  - RunStore: persists model snapshots of finished executions.
*/
package ports
