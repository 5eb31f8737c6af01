// Package core contains the canonical domain records, collaborator
// contracts, and pipeline orchestration for the bot. Adapters, stores, and
// transports depend on this package; core must not depend on channel or
// store implementations.
package core
