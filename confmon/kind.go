// SPDX-License-Identifier: GPL-3.0-or-later

package confmon

// Kind tags the origin of a configuration provider or a fetched
// [ConfigInfo]. Priority within the provider chain follows this order:
// File is consulted first, then CCCP, then HTTP, then User.
type Kind int

const (
	KindFile Kind = iota
	KindCCCP
	KindHTTP
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "File"
	case KindCCCP:
		return "CCCP"
	case KindHTTP:
		return "HTTP"
	case KindUser:
		return "User"
	default:
		return "Unknown"
	}
}
