/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

// navigator tracks the active index of a fixed-length queue. It is only
// touched with the session lock held, so requests are evaluated strictly in
// arrival order.
type navigator struct {
	active int
	length int
}

func newNavigator(length, initial int) navigator {
	n := navigator{length: length}
	n.active = n.clamp(initial)
	return n
}

func (n navigator) clamp(index int) int {
	if index < 0 {
		return 0
	}
	if index >= n.length {
		return n.length - 1
	}
	return index
}

func (n navigator) atFirst() bool { return n.active == 0 }

func (n navigator) atLast() bool { return n.active == n.length-1 }
