package raft

import (
	"errors"
	"fmt"
)

// ClusterInfo holds the NodeIDs of the servers in a Raft cluster and
// provides the helpers the consensus module needs around them: iterating
// peers and computing quorum size.
type ClusterInfo struct {
	thisNodeID NodeID

	// Excludes thisNodeID.
	peerNodeIDs []NodeID

	clusterSize uint
	quorumSize  uint
}

// NewClusterInfo allocates and validates a ClusterInfo.
//
//   - allNodeIDs must contain distinct, non-empty NodeIDs.
//   - allNodeIDs must include thisNodeID.
//   - allNodeIDs must have at least 1 element (a single-node "cluster" is
//     allowed, mainly for tests; a real deployment needs at least 3 for
//     fault tolerance).
func NewClusterInfo(allNodeIDs []NodeID, thisNodeID NodeID) (*ClusterInfo, error) {
	if allNodeIDs == nil {
		return nil, errors.New("raft: allNodeIDs is nil")
	}
	if len(allNodeIDs) < 1 {
		return nil, errors.New("raft: allNodeIDs must have at least 1 element")
	}
	if len(thisNodeID) == 0 {
		return nil, errors.New("raft: thisNodeID is empty")
	}

	seen := make(map[NodeID]bool, len(allNodeIDs))
	peerNodeIDs := make([]NodeID, 0, len(allNodeIDs)-1)
	for _, id := range allNodeIDs {
		if len(id) == 0 {
			return nil, errors.New("raft: allNodeIDs contains an empty NodeID")
		}
		if seen[id] {
			return nil, fmt.Errorf("raft: allNodeIDs contains duplicate: %v", id)
		}
		seen[id] = true
		if id != thisNodeID {
			peerNodeIDs = append(peerNodeIDs, id)
		}
	}
	if !seen[thisNodeID] {
		return nil, fmt.Errorf("raft: allNodeIDs does not contain thisNodeID: %v", thisNodeID)
	}

	clusterSize := uint(len(allNodeIDs))
	return &ClusterInfo{
		thisNodeID:  thisNodeID,
		peerNodeIDs: peerNodeIDs,
		clusterSize: clusterSize,
		quorumSize:  QuorumSizeForClusterSize(clusterSize),
	}, nil
}

// ThisNodeID returns the NodeID of "this" server.
func (ci *ClusterInfo) ThisNodeID() NodeID {
	return ci.thisNodeID
}

// PeerNodeIDs returns the NodeIDs of all servers in the cluster except
// "this" one. The returned slice must not be mutated by the caller.
func (ci *ClusterInfo) PeerNodeIDs() []NodeID {
	return ci.peerNodeIDs
}

// ForEachPeer calls f once for every peer NodeID, in order, stopping and
// returning the first error encountered (if any).
func (ci *ClusterInfo) ForEachPeer(f func(id NodeID) error) error {
	for _, id := range ci.peerNodeIDs {
		if err := f(id); err != nil {
			return err
		}
	}
	return nil
}

// ClusterSize returns the total number of nodes in the cluster, including
// "this" one.
func (ci *ClusterInfo) ClusterSize() uint {
	return ci.clusterSize
}

// QuorumSize returns the number of nodes (including self) required for a
// majority in this cluster.
func (ci *ClusterInfo) QuorumSize() uint {
	return ci.quorumSize
}

// QuorumSizeForClusterSize computes strict majority over the full cluster
// (peers + self): clusterSize/2 + 1.
func QuorumSizeForClusterSize(clusterSize uint) uint {
	return (clusterSize / 2) + 1
}
