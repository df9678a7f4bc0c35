// Copyright (C) 2025 Goodspeed Apps
//
// This file is part of statusclaw-a2a.
//
// statusclaw-a2a is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// statusclaw-a2a is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with statusclaw-a2a.  If not, see <https://www.gnu.org/licenses/>.

// Package nonce implements the replay-defense cache for the secure
// channel: a time-bounded set of (sender, nonce) pairs, each usable once.
//
// CheckAndRecord is the only operation the receive path needs and it is
// atomic, so concurrent deliveries of the same replayed message cannot
// both pass. Entries expire after a bounded TTL to keep memory flat.
//
// The cache is process-local. If the same agent identity can be served by
// several processes at once, replay protection requires a shared store in
// place of this cache - that is a deployment decision, not something this
// package papers over.
package nonce
