package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NetworkState tracks what the simulation layer has done to the ledger during
// a process. It is only mutated through the simulation controller.
type NetworkState struct {
	ForkURL      string                  `json:"forkUrl,omitempty"`
	ForkBlock    uint64                  `json:"forkBlock,omitempty"`
	ResetAt      time.Time               `json:"resetAt,omitempty"`
	Impersonated map[common.Address]bool `json:"impersonated"`
	Snapshots    []SnapshotEntry         `json:"snapshots"`
}

// SnapshotEntry represents an EVM snapshot point
type SnapshotEntry struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNetworkState creates an empty NetworkState
func NewNetworkState() *NetworkState {
	return &NetworkState{
		Impersonated: make(map[common.Address]bool),
	}
}

// IsForked returns true if the network was reset onto a fork
func (s *NetworkState) IsForked() bool {
	return s != nil && s.ForkURL != ""
}

// IsImpersonating returns true while addr is under simulated control
func (s *NetworkState) IsImpersonating(addr common.Address) bool {
	if s == nil || s.Impersonated == nil {
		return false
	}
	return s.Impersonated[addr]
}

// MarkImpersonated records the start or end of an impersonation
func (s *NetworkState) MarkImpersonated(addr common.Address, active bool) {
	if s.Impersonated == nil {
		s.Impersonated = make(map[common.Address]bool)
	}
	if active {
		s.Impersonated[addr] = true
		return
	}
	delete(s.Impersonated, addr)
}

// MarkReset records a reset. Impersonations and snapshots do not survive it.
func (s *NetworkState) MarkReset(forkURL string, block uint64, at time.Time) {
	s.ForkURL = forkURL
	s.ForkBlock = block
	s.ResetAt = at
	s.Impersonated = make(map[common.Address]bool)
	s.Snapshots = nil
}

// PushSnapshot records a snapshot id
func (s *NetworkState) PushSnapshot(id, label string, at time.Time) {
	s.Snapshots = append(s.Snapshots, SnapshotEntry{ID: id, Label: label, Timestamp: at})
}

// DropSnapshotsFrom removes the snapshot with the given id and every later one.
// Reverting invalidates snapshots taken after the target.
func (s *NetworkState) DropSnapshotsFrom(id string) {
	for i, snap := range s.Snapshots {
		if snap.ID == id {
			s.Snapshots = s.Snapshots[:i]
			return
		}
	}
}
