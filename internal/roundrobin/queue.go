// Package roundrobin hands out accepted quotations to sellers in queue order,
// skipping sellers that are inactive, on vacation or not participating.
package roundrobin

import (
	"fmt"
	"time"
)

type SellerStatus string

const (
	SellerActive   SellerStatus = "ACTIVE"
	SellerInactive SellerStatus = "INACTIVE"
	SellerVacation SellerStatus = "VACATION"
)

// Seller is the part of the seller directory the rotation reads.
type Seller struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	Email                 string       `json:"email"`
	Status                SellerStatus `json:"status"`
	ParticipateRoundRobin bool         `json:"participateRoundRobin"`
	Role                  string       `json:"role"`
}

// Eligible reports whether the seller may receive the next assignment.
func (s Seller) Eligible() bool {
	return s.Status == SellerActive && s.ParticipateRoundRobin
}

// QueueState is the persisted rotation record. Pointer is the index of the last
// assigned position, -1 before the first assignment.
type QueueState struct {
	ID           int64     `json:"id"`
	Queue        []string  `json:"queue"`
	Pointer      int       `json:"pointer"`
	LastSellerID string    `json:"lastSellerId,omitempty"`
	Version      int64     `json:"version"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (s QueueState) clone() QueueState {
	out := s
	out.Queue = append([]string(nil), s.Queue...)
	return out
}

func (s QueueState) indexOf(sellerID string) int {
	for i, id := range s.Queue {
		if id == sellerID {
			return i
		}
	}
	return -1
}

// NextEligible scans queue cyclically starting right after pointer and returns
// the index of the first eligible member. ok is false when a full lap finds none.
func NextEligible(queue []string, pointer int, eligible func(sellerID string) bool) (index int, ok bool) {
	n := len(queue)
	if n == 0 {
		return -1, false
	}
	start := pointer + 1
	if start < 0 {
		start = 0
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if eligible(queue[idx]) {
			return idx, true
		}
	}
	return -1, false
}

// Advance returns the state after assigning the member at index.
func (s QueueState) Advance(index int) QueueState {
	next := s.clone()
	next.Pointer = index
	next.LastSellerID = s.Queue[index]
	return next
}

// WithParticipant appends sellerID to the end of the rotation.
func (s QueueState) WithParticipant(sellerID string) (QueueState, error) {
	if sellerID == "" {
		return s, fmt.Errorf("seller id is required")
	}
	if s.indexOf(sellerID) >= 0 {
		return s, fmt.Errorf("seller %s is already in the queue", sellerID)
	}
	next := s.clone()
	next.Queue = append(next.Queue, sellerID)
	return next, nil
}

// WithoutParticipant removes sellerID. The pointer moves back when the removed
// position is at or before it, so the member after the removed one is next.
// LastSellerID is re-anchored on the member the pointer now names.
func (s QueueState) WithoutParticipant(sellerID string) (QueueState, error) {
	idx := s.indexOf(sellerID)
	if idx < 0 {
		return s, fmt.Errorf("seller %s is not in the queue", sellerID)
	}
	next := s.clone()
	next.Queue = append(next.Queue[:idx], next.Queue[idx+1:]...)
	if idx > next.Pointer {
		return next, nil
	}

	next.Pointer--
	if len(next.Queue) == 0 {
		next.Pointer = -1
	}
	next.LastSellerID = ""
	if next.Pointer >= 0 {
		next.LastSellerID = next.Queue[next.Pointer]
	}
	return next, nil
}

// Reordered replaces the rotation order. The pointer follows the last assigned
// seller to its new position, or restarts when that seller is gone.
func (s QueueState) Reordered(queue []string) (QueueState, error) {
	seen := make(map[string]struct{}, len(queue))
	for _, id := range queue {
		if id == "" {
			return s, fmt.Errorf("seller id is required")
		}
		if _, dup := seen[id]; dup {
			return s, fmt.Errorf("seller %s appears twice", id)
		}
		seen[id] = struct{}{}
	}
	next := s.clone()
	next.Queue = append([]string(nil), queue...)
	next.Pointer = next.indexOf(s.LastSellerID)
	return next, nil
}

// Reset moves the pointer before the first member.
func (s QueueState) Reset() QueueState {
	next := s.clone()
	next.Pointer = -1
	next.LastSellerID = ""
	return next
}
