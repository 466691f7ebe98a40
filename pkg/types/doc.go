// Package types defines the public contracts of the pantry storage layer:
// table schemas, records, the adapter/validator collaborator interfaces,
// trigger hooks, the ambient environment contract, and the error taxonomy.
// See docs/ARCHITECTURE.md § Main Interface.
package types
