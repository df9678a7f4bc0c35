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

// Package statusclaw provides version information for the StatusClaw A2A
// secure channel library.
package statusclaw

const (
	// Version is the current version of statusclaw-a2a
	Version = "1.0.0"

	// ChannelProtocolVersion is the secure message envelope version
	// produced and accepted by pkg/channel
	ChannelProtocolVersion = "1.0"

	// SignatureScheme is the asymmetric signature scheme used for
	// message and request signing
	SignatureScheme = "ed25519"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version                string
	ChannelProtocolVersion string
	SignatureScheme        string
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:                Version,
		ChannelProtocolVersion: ChannelProtocolVersion,
		SignatureScheme:        SignatureScheme,
	}
}
