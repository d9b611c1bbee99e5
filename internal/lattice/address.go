package lattice

// Role classifies a relay by the sign pattern of its address.
type Role string

const (
	RoleAxisX   Role = "axis_x"
	RoleAxisY   Role = "axis_y"
	RoleAxisZ   Role = "axis_z"
	RolePlaneXY Role = "plane_xy"
	RolePlaneXZ Role = "plane_xz"
	RolePlaneYZ Role = "plane_yz"
	RoleCorner  Role = "corner"
)

// Address is a relay's position in the world topology. Each component
// is in {-1, 0, 1} and at least one is non-zero, giving 26 addresses
// per world.
type Address struct {
	AX int `json:"ax"`
	AY int `json:"ay"`
	AZ int `json:"az"`
}

// Valid reports whether the address is on the topology.
func (a Address) Valid() bool {
	in := func(v int) bool { return v >= -1 && v <= 1 }
	if !in(a.AX) || !in(a.AY) || !in(a.AZ) {
		return false
	}
	return a.AX != 0 || a.AY != 0 || a.AZ != 0
}

// RoleOf derives the relay role from the sign pattern: one non-zero
// component is an axis relay, two a planar relay, three a corner.
func (a Address) RoleOf() Role {
	switch nonZero(a.AX) + nonZero(a.AY) + nonZero(a.AZ) {
	case 1:
		switch {
		case a.AX != 0:
			return RoleAxisX
		case a.AY != 0:
			return RoleAxisY
		default:
			return RoleAxisZ
		}
	case 2:
		switch {
		case a.AZ == 0:
			return RolePlaneXY
		case a.AY == 0:
			return RolePlaneXZ
		default:
			return RolePlaneYZ
		}
	default:
		return RoleCorner
	}
}

// Position scales the address out to world-space coordinates.
func (a Address) Position(radius float64) (x, y, z float64) {
	return float64(a.AX) * radius, float64(a.AY) * radius, float64(a.AZ) * radius
}

// Addresses returns the fixed 26 relay addresses of a world in a stable
// order: the 6 axis relays, then the 12 planar relays, then the 8
// corners.
func Addresses() []Address {
	var axis, planar, corners []Address
	for ax := -1; ax <= 1; ax++ {
		for ay := -1; ay <= 1; ay++ {
			for az := -1; az <= 1; az++ {
				a := Address{AX: ax, AY: ay, AZ: az}
				switch nonZero(ax) + nonZero(ay) + nonZero(az) {
				case 1:
					axis = append(axis, a)
				case 2:
					planar = append(planar, a)
				case 3:
					corners = append(corners, a)
				}
			}
		}
	}

	out := make([]Address, 0, len(axis)+len(planar)+len(corners))
	out = append(out, axis...)
	out = append(out, planar...)
	out = append(out, corners...)
	return out
}

func nonZero(v int) int {
	if v != 0 {
		return 1
	}
	return 0
}
